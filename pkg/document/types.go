// ABOUTME: Document data model and the generic keyed CRUD store contract
// ABOUTME: Shared by every adapter and by the versioning plugin

package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// DefaultIDField is the identifier field used when an adapter is not told otherwise
const DefaultIDField = "id"

// ErrNotFound is returned by Get, Update, Patch and Remove for unknown ids
var ErrNotFound = errors.New("not found")

// Document is a schemaless record: field name to value
type Document map[string]any

// Clone returns a shallow copy of the document
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Query selects documents whose fields equal the given values
type Query struct {
	Fields map[string]any // Field equality filters, all must match
	Limit  int            // Maximum results, 0 for no limit
}

// Matches reports whether doc satisfies every field filter
func (q Query) Matches(doc Document) bool {
	for field, want := range q.Fields {
		got, ok := doc[field]
		if !ok || !ValuesEqual(got, want) {
			return false
		}
	}
	return true
}

// Store is the keyed CRUD contract implemented by every storage adapter
type Store interface {
	IDField() string
	Find(ctx context.Context, q Query) ([]Document, error)
	Get(ctx context.Context, id any) (Document, error)
	Create(ctx context.Context, data Document) (Document, error)
	Update(ctx context.Context, id any, data Document) (Document, error)
	Patch(ctx context.Context, id any, data Document) (Document, error)
	Remove(ctx context.Context, id any) (Document, error)
}

// NotFoundError builds the error adapters return for an unknown id
func NotFoundError(id any) error {
	return fmt.Errorf("%w: no record found for id '%v'", ErrNotFound, id)
}

// ValuesEqual compares two field values, treating all numeric kinds as numbers
func ValuesEqual(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Normalize converts a document into its JSON data model: nested values become
// map[string]any, []any, string, float64, bool or nil. Snapshots and RPC
// payloads are compared and transported in this shape.
func Normalize(d Document) (Document, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	return out, nil
}
