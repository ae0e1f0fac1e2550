// ABOUTME: Retention engine recording masked snapshots after document mutations
// ABOUTME: Dedups identical states, coalesces rapid edits and trims to a limit

package version

import (
	"context"
	"fmt"
	"reflect"

	"github.com/nainya/docversions/internal/metrics"
	"github.com/nainya/docversions/pkg/app"
	"github.com/nainya/docversions/pkg/document"
)

const addVersionHook = "add-version"

// Recorder appends version entries to the histories of one or more tracked services
type Recorder struct {
	vs   *VersionStore
	opts Options
}

// NewRecorder validates opts and binds a recorder to vs
func NewRecorder(vs *VersionStore, opts Options) (*Recorder, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if vs == nil {
		return nil, ErrNotInitialized
	}
	return &Recorder{vs: vs, opts: opts}, nil
}

// Options returns the effective options
func (r *Recorder) Options() Options {
	return r.opts
}

// RecordVersion records one entry per document of docs, in order. The first
// failure stops the batch; entries recorded before it are kept.
func (r *Recorder) RecordVersion(ctx context.Context, svc *app.Service, docs []document.Document, user document.Document) error {
	if svc == r.vs.svc {
		return ErrSelfReference
	}

	name := serviceName(svc)
	userID := r.vs.UserID(user)
	log := r.vs.log.VersionLogger(name)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, ok := doc[svc.IDField()]
		if !ok || id == nil {
			return app.BadRequest(fmt.Errorf("document has no '%s' field", svc.IDField()))
		}
		cast, err := r.vs.CastID(id)
		if err != nil {
			return app.BadRequest(err)
		}
		key := Key{Document: cast, Service: name}

		data := r.opts.Mask.Apply(doc)
		if data == nil {
			log.Debug("nothing left after mask").Str("key", key.String()).Send()
			r.vs.metrics.RecordSkip(name, metrics.SkipMasked)
			continue
		}
		if data, err = document.Normalize(data); err != nil {
			return app.BadRequest(err)
		}

		if err := r.record(ctx, key, data, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) record(ctx context.Context, key Key, data document.Document, userID any) error {
	unlock := r.vs.lockKey(key)
	defer unlock()

	log := r.vs.log.VersionLogger(key.Service)

	h, err := r.vs.Get(ctx, key)
	if err != nil {
		return app.BadRequest(err)
	}
	if h == nil {
		if h, err = r.vs.create(ctx, key); err != nil {
			return app.BadRequest(err)
		}
	}

	saved := r.vs.now()
	coalesced := false

	if latest := h.Latest(); latest != nil {
		if reflect.DeepEqual(latest.Data, data) {
			log.Debug("unchanged document").Str("key", key.String()).Send()
			r.vs.metrics.RecordSkip(key.Service, metrics.SkipDuplicate)
			return nil
		}
		if r.opts.SaveInterval > 0 && saved.Sub(latest.Saved) < r.opts.SaveInterval {
			saved = latest.Saved
			h.List = h.List[:len(h.List)-1]
			coalesced = true
		}
	}

	h.List = append(h.List, Entry{Data: data, User: userID, Saved: saved})

	trimmed := 0
	if len(h.List) > r.opts.Limit {
		trimmed = len(h.List) - r.opts.Limit
		h.List = h.List[trimmed:]
	}

	if err := r.vs.saveList(ctx, h); err != nil {
		return app.BadRequest(err)
	}

	log.Debug("version recorded").
		Str("key", key.String()).
		Int("entries", len(h.List)).
		Bool("coalesced", coalesced).
		Int("trimmed", trimmed).
		Send()
	r.vs.metrics.RecordVersion(key.Service, coalesced, trimmed)
	return nil
}

// Hook returns an after hook for create, update and patch
func (r *Recorder) Hook() app.Hook {
	return func(ctx context.Context, hc *app.HookContext) error {
		if err := app.CheckContext(hc, app.After, []app.Method{app.Update, app.Patch, app.Create}, addVersionHook); err != nil {
			return err
		}
		return r.RecordVersion(ctx, hc.Service, hc.Result, r.vs.UserFrom(hc.Params))
	}
}

// Attach registers the recorder on the mutating methods of svc
func (r *Recorder) Attach(svc *app.Service) {
	h := r.Hook()
	svc.After(app.Create, h)
	svc.After(app.Update, h)
	svc.After(app.Patch, h)
}

// AddVersion builds a recorder hook bound to the version store of a
func AddVersion(a *app.App, opts Options) (app.Hook, error) {
	r, err := NewRecorder(GetVersionService(a), opts)
	if err != nil {
		return nil, err
	}
	return r.Hook(), nil
}

// serviceName resolves the registered name of svc
func serviceName(svc *app.Service) string {
	if a := svc.App(); a != nil {
		if name := a.NameOf(svc); name != "" {
			return name
		}
	}
	return svc.Name()
}
