// ABOUTME: Version store setup and discovery on a host application
// ABOUTME: Exactly one version store may be mounted per application

package version

import (
	"context"

	"github.com/nainya/docversions/pkg/app"
)

// storeAttr marks the service holding History records
type storeAttr struct{}

// Initialize mounts the version store on a. The store casts the document id
// of every query and refuses writes that arrive through a transport.
func Initialize(a *app.App, cfg Config) (*VersionStore, error) {
	if a == nil {
		return nil, &ConfigError{Field: "app", Message: "an application is required"}
	}

	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	if GetVersionService(a) != nil {
		return nil, ErrAlreadyInitialized
	}
	if a.Service(cfg.ServiceName) != nil {
		return nil, &ConfigError{Field: "serviceName", Message: "a service named '" + cfg.ServiceName + "' is already registered"}
	}

	vs := &VersionStore{
		idType:          cfg.IDType,
		userEntityField: cfg.UserEntityField,
		userIDField:     cfg.UserIDField,
		log:             cfg.Logger,
		metrics:         cfg.Metrics,
		now:             cfg.Clock,
		locks:           newKeyLocks(),
	}

	vs.svc = a.Use(cfg.ServiceName, cfg.Adapter)
	vs.svc.SetAttr(storeAttr{}, vs)
	vs.svc.Before(app.All, vs.castQuery)
	vs.svc.Before(app.Create, internalOnly)
	vs.svc.Before(app.Update, internalOnly)
	vs.svc.Before(app.Patch, internalOnly)
	vs.svc.Before(app.Remove, internalOnly)

	cfg.Logger.Info("version store initialized").
		Str("service_name", cfg.ServiceName).
		Send()

	return vs, nil
}

// GetVersionService returns the version store mounted on a, or nil
func GetVersionService(a *app.App) *VersionStore {
	if a == nil {
		return nil
	}
	for _, svc := range a.Services() {
		if v, ok := svc.Attr(storeAttr{}); ok {
			return v.(*VersionStore)
		}
	}
	return nil
}

func (vs *VersionStore) castQuery(ctx context.Context, hc *app.HookContext) error {
	if hc.Query == nil {
		return nil
	}
	id, ok := hc.Query.Fields["document"]
	if !ok {
		return nil
	}
	cast, err := vs.idType(id)
	if err != nil {
		return app.BadRequest(err)
	}
	hc.Query.Fields["document"] = cast
	return nil
}

func internalOnly(ctx context.Context, hc *app.HookContext) error {
	if hc.Params.External() {
		return app.MethodNotAllowed("provider '%s' can not call '%s' on the version store", hc.Params.Provider, hc.Method)
	}
	return nil
}
