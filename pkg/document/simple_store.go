// ABOUTME: In-memory document store, the default adapter
// ABOUTME: Auto-increments integer ids and keeps insertion order for Find

package document

import (
	"context"
	"fmt"
	"sync"
)

// SimpleStore keeps documents in memory
type SimpleStore struct {
	mu      sync.RWMutex
	idField string
	nextID  int64
	docs    map[string]Document
	order   []string
}

// NewSimpleStore creates an empty in-memory store using idField as identifier
func NewSimpleStore(idField string) *SimpleStore {
	if idField == "" {
		idField = DefaultIDField
	}
	return &SimpleStore{
		idField: idField,
		docs:    make(map[string]Document),
	}
}

// idKey collapses numeric kinds so 3, int64(3) and float64(3) address one record
func idKey(id any) string {
	if f, ok := toFloat(id); ok {
		return fmt.Sprint(f)
	}
	return fmt.Sprint(id)
}

// IDField returns the identifier field name
func (ss *SimpleStore) IDField() string {
	return ss.idField
}

// Find returns documents matching q in insertion order
func (ss *SimpleStore) Find(ctx context.Context, q Query) ([]Document, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	results := []Document{}
	for _, key := range ss.order {
		if q.Limit > 0 && len(results) >= q.Limit {
			break
		}
		doc := ss.docs[key]
		if q.Matches(doc) {
			results = append(results, doc.Clone())
		}
	}
	return results, nil
}

// Get retrieves a document by id
func (ss *SimpleStore) Get(ctx context.Context, id any) (Document, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	doc, ok := ss.docs[idKey(id)]
	if !ok {
		return nil, NotFoundError(id)
	}
	return doc.Clone(), nil
}

// Create stores a new document, assigning the next integer id when data has none
func (ss *SimpleStore) Create(ctx context.Context, data Document) (Document, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	doc := data.Clone()
	if doc == nil {
		doc = Document{}
	}

	id, ok := doc[ss.idField]
	if !ok || id == nil {
		id = ss.nextID
		ss.nextID++
		doc[ss.idField] = id
	}

	key := idKey(id)
	if _, exists := ss.docs[key]; exists {
		return nil, fmt.Errorf("record with id '%v' already exists", id)
	}

	ss.docs[key] = doc
	ss.order = append(ss.order, key)
	return doc.Clone(), nil
}

// Update replaces a document, keeping its id
func (ss *SimpleStore) Update(ctx context.Context, id any, data Document) (Document, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	key := idKey(id)
	old, ok := ss.docs[key]
	if !ok {
		return nil, NotFoundError(id)
	}

	doc := data.Clone()
	if doc == nil {
		doc = Document{}
	}
	doc[ss.idField] = old[ss.idField]
	ss.docs[key] = doc
	return doc.Clone(), nil
}

// Patch merges data into a document
func (ss *SimpleStore) Patch(ctx context.Context, id any, data Document) (Document, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	key := idKey(id)
	old, ok := ss.docs[key]
	if !ok {
		return nil, NotFoundError(id)
	}

	doc := old.Clone()
	for k, v := range data {
		if k == ss.idField {
			continue
		}
		doc[k] = v
	}
	ss.docs[key] = doc
	return doc.Clone(), nil
}

// Remove deletes a document and returns it
func (ss *SimpleStore) Remove(ctx context.Context, id any) (Document, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	key := idKey(id)
	doc, ok := ss.docs[key]
	if !ok {
		return nil, NotFoundError(id)
	}

	delete(ss.docs, key)
	for i, k := range ss.order {
		if k == key {
			ss.order = append(ss.order[:i], ss.order[i+1:]...)
			break
		}
	}
	return doc, nil
}

// Len returns the number of stored documents
func (ss *SimpleStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.docs)
}
