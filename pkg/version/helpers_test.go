package version

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nainya/docversions/pkg/app"
	"github.com/nainya/docversions/pkg/document"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	app      *app.App
	vs       *VersionStore
	messages *app.Service
	clock    *fakeClock
}

// newFixture mounts a version store and a tracked "messages" service with a
// recorder and pruner attached
func newFixture(t *testing.T, opts Options, cfg Config) *fixture {
	t.Helper()

	clock := newFakeClock()
	if cfg.Clock == nil {
		cfg.Clock = clock.Now
	}

	a := app.New()
	vs, err := Initialize(a, cfg)
	require.NoError(t, err)

	messages := a.Use("messages", document.NewSimpleStore(""))

	rec, err := NewRecorder(vs, opts)
	require.NoError(t, err)
	rec.Attach(messages)

	pruner, err := NewPruner(vs)
	require.NoError(t, err)
	pruner.Attach(messages)

	return &fixture{app: a, vs: vs, messages: messages, clock: clock}
}

func (f *fixture) history(t *testing.T, doc document.Document) *History {
	t.Helper()
	h, err := GetVersion(context.Background(), f.app, "messages", doc)
	require.NoError(t, err)
	return h
}

var errStoreDown = errors.New("store down")

// flakyStore fails Patch calls once failPatchAt of them have succeeded, and
// every Find or Create while failFind or failCreate is set
type flakyStore struct {
	*document.SimpleStore
	mu          sync.Mutex
	patches     int
	failPatchAt int
	failFind    bool
	failCreate  bool
}

func (s *flakyStore) Patch(ctx context.Context, id any, data document.Document) (document.Document, error) {
	s.mu.Lock()
	n := s.patches
	s.patches++
	s.mu.Unlock()

	if n >= s.failPatchAt {
		return nil, errStoreDown
	}
	return s.SimpleStore.Patch(ctx, id, data)
}

func (s *flakyStore) Find(ctx context.Context, q document.Query) ([]document.Document, error) {
	s.mu.Lock()
	fail := s.failFind
	s.mu.Unlock()

	if fail {
		return nil, errStoreDown
	}
	return s.SimpleStore.Find(ctx, q)
}

func (s *flakyStore) Create(ctx context.Context, data document.Document) (document.Document, error) {
	s.mu.Lock()
	fail := s.failCreate
	s.mu.Unlock()

	if fail {
		return nil, errStoreDown
	}
	return s.SimpleStore.Create(ctx, data)
}

func (s *flakyStore) fail(find, create bool) {
	s.mu.Lock()
	s.failFind = find
	s.failCreate = create
	s.mu.Unlock()
}

// softStore keeps removed documents resolvable
type softStore struct {
	*document.SimpleStore
}

func (s *softStore) Remove(ctx context.Context, id any) (document.Document, error) {
	return s.SimpleStore.Patch(ctx, id, document.Document{"deleted": true})
}

// brokenGetStore fails every Get after a successful Remove
type brokenGetStore struct {
	*document.SimpleStore
	removed bool
}

func (s *brokenGetStore) Get(ctx context.Context, id any) (document.Document, error) {
	if s.removed {
		return nil, errStoreDown
	}
	return s.SimpleStore.Get(ctx, id)
}

func (s *brokenGetStore) Remove(ctx context.Context, id any) (document.Document, error) {
	doc, err := s.SimpleStore.Remove(ctx, id)
	s.removed = err == nil
	return doc, err
}
