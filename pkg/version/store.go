// ABOUTME: Version store: the service holding one History record per tracked document
// ABOUTME: Reads are public; writes belong to the Recorder and Pruner

package version

import (
	"context"
	"time"

	"github.com/nainya/docversions/internal/logger"
	"github.com/nainya/docversions/internal/metrics"
	"github.com/nainya/docversions/pkg/app"
	"github.com/nainya/docversions/pkg/document"
)

// VersionStore manages History records on a dedicated service
type VersionStore struct {
	svc             *app.Service
	idType          IDCaster
	userEntityField string
	userIDField     string

	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	locks   *keyLocks
}

// Service returns the service holding History records
func (vs *VersionStore) Service() *app.Service {
	return vs.svc
}

// Name returns the name the version store is mounted under
func (vs *VersionStore) Name() string {
	return vs.svc.Name()
}

// CastID applies the configured id type to a tracked document id
func (vs *VersionStore) CastID(id any) (any, error) {
	return vs.idType(id)
}

// UserFrom returns the acting user carried by params, or nil
func (vs *VersionStore) UserFrom(p *app.Params) document.Document {
	switch u := p.Value(vs.userEntityField).(type) {
	case document.Document:
		return u
	case map[string]any:
		return document.Document(u)
	}
	return nil
}

// UserID returns the id of user, or nil without a user
func (vs *VersionStore) UserID(user document.Document) any {
	if user == nil {
		return nil
	}
	return user[vs.userIDField]
}

func (vs *VersionStore) observe(op string, start time.Time, records int, err error) {
	d := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	vs.metrics.RecordDbOperation(op, status, d)
	vs.log.LogDbOperation(op, d, records, err)
}

// Get returns the History for key, or nil when none exists
func (vs *VersionStore) Get(ctx context.Context, key Key) (*History, error) {
	start := time.Now()
	docs, err := vs.svc.Find(ctx, key.query(1), nil)
	vs.observe("versions.find", start, len(docs), err)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return historyFromDocument(docs[0], vs.svc.IDField())
}

func (vs *VersionStore) create(ctx context.Context, key Key) (*History, error) {
	start := time.Now()
	doc, err := vs.svc.Create(ctx, document.Document{
		"document": key.Document,
		"service":  key.Service,
		"list":     []Entry{},
	}, nil)
	vs.observe("versions.create", start, 1, err)
	if err != nil {
		return nil, err
	}
	return historyFromDocument(doc, vs.svc.IDField())
}

// saveList replaces the stored list of h
func (vs *VersionStore) saveList(ctx context.Context, h *History) error {
	start := time.Now()
	_, err := vs.svc.Patch(ctx, h.ID, document.Document{"list": h.List}, nil)
	vs.observe("versions.patch", start, 1, err)
	return err
}

func (vs *VersionStore) remove(ctx context.Context, h *History) error {
	start := time.Now()
	_, err := vs.svc.Remove(ctx, h.ID, nil)
	vs.observe("versions.remove", start, 1, err)
	return err
}

// lockKey serialises writers of one history in this process
func (vs *VersionStore) lockKey(key Key) func() {
	return vs.locks.lock(key.String())
}
