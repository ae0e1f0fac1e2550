package main

import (
	"fmt"
	"strings"

	"github.com/nainya/docversions/internal/config"
	"github.com/nainya/docversions/internal/logger"
	"github.com/nainya/docversions/internal/metrics"
	"github.com/nainya/docversions/pkg/app"
	"github.com/nainya/docversions/pkg/document"
	"github.com/nainya/docversions/pkg/storage"
	"github.com/nainya/docversions/pkg/version"
)

// runtime is an application assembled from config
type runtime struct {
	app      *app.App
	versions *version.VersionStore
	kv       *storage.KV
}

func (r *runtime) Close() error {
	if r.kv == nil {
		return nil
	}
	return r.kv.Close()
}

// buildApp mounts the version store and every configured service, attaching
// a recorder and a pruner to tracked ones
func buildApp(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (_ *runtime, err error) {
	rt := &runtime{app: app.New()}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	ids, err := cfg.Storage.IDs()
	if err != nil {
		return nil, err
	}

	newStore := func(name, idField string) document.Store {
		return document.NewSimpleStore(idField)
	}
	if cfg.Storage.Adapter == config.AdapterBadger {
		if rt.kv, err = storage.Open(cfg.Storage.KVConfig(log)); err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		newStore = func(name, idField string) document.Store {
			return document.NewKVStore(rt.kv, name, idField, ids)
		}
	}

	vcfg, err := cfg.Versions.VersionConfig()
	if err != nil {
		return nil, err
	}
	vcfg.Adapter = newStore(strings.Trim(vcfg.ServiceName, "/"), "")
	vcfg.Logger = log
	vcfg.Metrics = m

	if rt.versions, err = version.Initialize(rt.app, vcfg); err != nil {
		return nil, err
	}
	pruner, err := version.NewPruner(rt.versions)
	if err != nil {
		return nil, err
	}

	for _, sc := range cfg.Services {
		if rt.app.Service(sc.Name) != nil {
			return nil, fmt.Errorf("service %s is already mounted", sc.Name)
		}
		svc := rt.app.Use(sc.Name, newStore(sc.Name, sc.IDField))
		if !sc.Track {
			continue
		}

		opts, err := sc.RecorderOptions()
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", sc.Name, err)
		}
		rec, err := version.NewRecorder(rt.versions, opts)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", sc.Name, err)
		}
		rec.Attach(svc)
		pruner.Attach(svc)

		log.Info("tracking service").
			Str("service", sc.Name).
			Int("limit", rec.Options().Limit).
			Dur("save_interval", rec.Options().SaveInterval).
			Str("mask", rec.Options().Mask.String()).
			Send()
	}
	return rt, nil
}
