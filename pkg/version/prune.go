// ABOUTME: Pruner removing version histories of deleted documents
// ABOUTME: Histories survive when the document still resolves after removal

package version

import (
	"context"
	"errors"
	"fmt"

	"github.com/nainya/docversions/pkg/app"
	"github.com/nainya/docversions/pkg/document"
)

const clearVersionsHook = "clear-versions"

// Pruner deletes histories once their documents are gone
type Pruner struct {
	vs *VersionStore
}

// NewPruner binds a pruner to vs
func NewPruner(vs *VersionStore) (*Pruner, error) {
	if vs == nil {
		return nil, ErrNotInitialized
	}
	return &Pruner{vs: vs}, nil
}

// ClearVersions removes the history of every document of docs that svc no
// longer resolves
func (p *Pruner) ClearVersions(ctx context.Context, svc *app.Service, docs []document.Document) error {
	if svc == p.vs.svc {
		return ErrSelfReference
	}

	name := serviceName(svc)
	log := p.vs.log.VersionLogger(name)

	for _, doc := range docs {
		id, ok := doc[svc.IDField()]
		if !ok || id == nil {
			return app.BadRequest(fmt.Errorf("document has no '%s' field", svc.IDField()))
		}

		_, err := svc.Get(ctx, id, nil)
		if err == nil {
			log.Debug("document still resolves, keeping history").Interface("document", id).Send()
			continue
		}
		if !errors.Is(err, document.ErrNotFound) {
			return err
		}

		cast, err := p.vs.CastID(id)
		if err != nil {
			return app.BadRequest(err)
		}
		key := Key{Document: cast, Service: name}

		if err := p.prune(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pruner) prune(ctx context.Context, key Key) error {
	unlock := p.vs.lockKey(key)
	defer unlock()

	h, err := p.vs.Get(ctx, key)
	if err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	if err := p.vs.remove(ctx, h); err != nil {
		return err
	}

	p.vs.log.VersionLogger(key.Service).Debug("history removed").Str("key", key.String()).Send()
	p.vs.metrics.RecordPrune(key.Service)
	return nil
}

// Hook returns an after hook for remove
func (p *Pruner) Hook() app.Hook {
	return func(ctx context.Context, hc *app.HookContext) error {
		if err := app.CheckContext(hc, app.After, []app.Method{app.Remove}, clearVersionsHook); err != nil {
			return err
		}
		return p.ClearVersions(ctx, hc.Service, hc.Result)
	}
}

// Attach registers the pruner on the remove method of svc
func (p *Pruner) Attach(svc *app.Service) {
	svc.After(app.Remove, p.Hook())
}

// ClearVersions builds a pruner hook bound to the version store of a
func ClearVersions(a *app.App) (app.Hook, error) {
	p, err := NewPruner(GetVersionService(a))
	if err != nil {
		return nil, err
	}
	return p.Hook(), nil
}
