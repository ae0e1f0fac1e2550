// ABOUTME: Hookable service wrapping a document store
// ABOUTME: Runs before hooks, the store call, then after hooks

package app

import (
	"context"
	"sync"

	"github.com/nainya/docversions/pkg/document"
)

// Service exposes a document store through hook pipelines
type Service struct {
	app   *App
	name  string
	store document.Store

	mu     sync.RWMutex
	before map[Method][]Hook
	after  map[Method][]Hook
	attrs  map[any]any
}

func newService(a *App, name string, store document.Store) *Service {
	return &Service{
		app:    a,
		name:   name,
		store:  store,
		before: make(map[Method][]Hook),
		after:  make(map[Method][]Hook),
		attrs:  make(map[any]any),
	}
}

// Name returns the name the service was mounted under
func (s *Service) Name() string { return s.name }

// App returns the owning application
func (s *Service) App() *App { return s.app }

// Store returns the underlying adapter
func (s *Service) Store() document.Store { return s.store }

// IDField returns the identifier field of the underlying store
func (s *Service) IDField() string { return s.store.IDField() }

// Before registers hooks to run before method
func (s *Service) Before(method Method, hooks ...Hook) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before[method] = append(s.before[method], hooks...)
	return s
}

// After registers hooks to run after method
func (s *Service) After(method Method, hooks ...Hook) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.after[method] = append(s.after[method], hooks...)
	return s
}

// SetAttr attaches a value to the service under key
func (s *Service) SetAttr(key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = value
}

// Attr returns a value attached with SetAttr
func (s *Service) Attr(key any) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.attrs[key]
	return v, ok
}

func (s *Service) hooks(phase Phase, method Method) []Hook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := s.before
	if phase == After {
		table = s.after
	}
	out := make([]Hook, 0, len(table[All])+len(table[method]))
	out = append(out, table[All]...)
	return append(out, table[method]...)
}

// run drives one method call through its hook pipeline
func (s *Service) run(ctx context.Context, hc *HookContext, call func(ctx context.Context, hc *HookContext) ([]document.Document, error)) ([]document.Document, error) {
	if hc.Params == nil {
		hc.Params = &Params{}
	}

	hc.Phase = Before
	for _, h := range s.hooks(Before, hc.Method) {
		if err := h(ctx, hc); err != nil {
			return nil, err
		}
	}

	result, err := call(ctx, hc)
	if err != nil {
		return nil, err
	}
	hc.Result = result

	hc.Phase = After
	for _, h := range s.hooks(After, hc.Method) {
		if err := h(ctx, hc); err != nil {
			return nil, err
		}
	}
	return hc.Result, nil
}

func (s *Service) newContext(method Method, p *Params) *HookContext {
	return &HookContext{App: s.app, Service: s, Method: method, Params: p}
}

func first(docs []document.Document, err error) (document.Document, error) {
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Find returns documents matching q
func (s *Service) Find(ctx context.Context, q document.Query, p *Params) ([]document.Document, error) {
	fields := make(map[string]any, len(q.Fields))
	for k, v := range q.Fields {
		fields[k] = v
	}

	hc := s.newContext(Find, p)
	hc.Query = &document.Query{Fields: fields, Limit: q.Limit}
	return s.run(ctx, hc, func(ctx context.Context, hc *HookContext) ([]document.Document, error) {
		return s.store.Find(ctx, *hc.Query)
	})
}

// Get returns one document by id
func (s *Service) Get(ctx context.Context, id any, p *Params) (document.Document, error) {
	hc := s.newContext(Get, p)
	hc.ID = id
	return first(s.run(ctx, hc, func(ctx context.Context, hc *HookContext) ([]document.Document, error) {
		doc, err := s.store.Get(ctx, hc.ID)
		if err != nil {
			return nil, err
		}
		return []document.Document{doc}, nil
	}))
}

// Create stores one document
func (s *Service) Create(ctx context.Context, data document.Document, p *Params) (document.Document, error) {
	return first(s.CreateMany(ctx, []document.Document{data}, p))
}

// CreateMany stores a batch of documents in order. A failure stops the batch;
// documents created before it are kept.
func (s *Service) CreateMany(ctx context.Context, data []document.Document, p *Params) ([]document.Document, error) {
	hc := s.newContext(Create, p)
	hc.Data = data
	return s.run(ctx, hc, func(ctx context.Context, hc *HookContext) ([]document.Document, error) {
		out := make([]document.Document, 0, len(hc.Data))
		for _, d := range hc.Data {
			doc, err := s.store.Create(ctx, d)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
		return out, nil
	})
}

// Update replaces a document
func (s *Service) Update(ctx context.Context, id any, data document.Document, p *Params) (document.Document, error) {
	hc := s.newContext(Update, p)
	hc.ID = id
	hc.Data = []document.Document{data}
	return first(s.run(ctx, hc, func(ctx context.Context, hc *HookContext) ([]document.Document, error) {
		doc, err := s.store.Update(ctx, hc.ID, hc.Data[0])
		if err != nil {
			return nil, err
		}
		return []document.Document{doc}, nil
	}))
}

// Patch merges data into a document
func (s *Service) Patch(ctx context.Context, id any, data document.Document, p *Params) (document.Document, error) {
	hc := s.newContext(Patch, p)
	hc.ID = id
	hc.Data = []document.Document{data}
	return first(s.run(ctx, hc, func(ctx context.Context, hc *HookContext) ([]document.Document, error) {
		doc, err := s.store.Patch(ctx, hc.ID, hc.Data[0])
		if err != nil {
			return nil, err
		}
		return []document.Document{doc}, nil
	}))
}

// Remove deletes a document
func (s *Service) Remove(ctx context.Context, id any, p *Params) (document.Document, error) {
	hc := s.newContext(Remove, p)
	hc.ID = id
	return first(s.run(ctx, hc, func(ctx context.Context, hc *HookContext) ([]document.Document, error) {
		doc, err := s.store.Remove(ctx, hc.ID)
		if err != nil {
			return nil, err
		}
		return []document.Document{doc}, nil
	}))
}
