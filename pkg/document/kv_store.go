// ABOUTME: Persistent document store over the badger-backed KV
// ABOUTME: One collection per store; documents are JSON values under (collection, id) keys

package document

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/nainya/docversions/pkg/storage"
)

// IDStrategy selects how a KVStore assigns ids to new documents
type IDStrategy int

const (
	IDSequence IDStrategy = iota // int64 ids from a persistent badger sequence
	IDUUID                       // random UUID strings
)

// ParseIDStrategy maps a configuration name onto an IDStrategy
func ParseIDStrategy(name string) (IDStrategy, error) {
	switch name {
	case "", "sequence":
		return IDSequence, nil
	case "uuid":
		return IDUUID, nil
	}
	return 0, fmt.Errorf("unknown id strategy %q", name)
}

// KVStore manages one collection of documents in a KV
type KVStore struct {
	kv         *storage.KV
	collection string
	idField    string
	ids        IDStrategy
}

// NewKVStore creates a document store for collection
func NewKVStore(kv *storage.KV, collection, idField string, ids IDStrategy) *KVStore {
	if idField == "" {
		idField = DefaultIDField
	}
	return &KVStore{kv: kv, collection: collection, idField: idField, ids: ids}
}

// IDField returns the identifier field name
func (ks *KVStore) IDField() string {
	return ks.idField
}

func (ks *KVStore) prefix() []byte {
	return storage.EncodeKey(storage.PREFIX_DOCUMENT, storage.NewStringValue(ks.collection))
}

// canonicalID converts an incoming id into the type keys are built from
func (ks *KVStore) canonicalID(id any) (any, error) {
	if ks.ids == IDUUID {
		if id == nil {
			return nil, fmt.Errorf("missing id")
		}
		return fmt.Sprint(id), nil
	}

	switch v := id.(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", v, err)
		}
		return n, nil
	case float32, float64:
		f, _ := toFloat(v)
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("invalid id %v: not an integer", v)
		}
		return int64(f), nil
	default:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("invalid id %v (%T)", id, id)
		}
		return int64(f), nil
	}
}

func (ks *KVStore) keyFor(id any) []byte {
	if n, ok := id.(int64); ok {
		return storage.EncodeKey(storage.PREFIX_DOCUMENT, storage.NewStringValue(ks.collection), storage.NewInt64Value(n))
	}
	return storage.EncodeKey(storage.PREFIX_DOCUMENT, storage.NewStringValue(ks.collection), storage.NewStringValue(id.(string)))
}

func (ks *KVStore) encode(doc Document) ([]byte, error) {
	val, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return val, nil
}

func (ks *KVStore) decode(id any, val []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(val, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	// JSON turns int64 ids into float64
	doc[ks.idField] = id
	return doc, nil
}

func (ks *KVStore) decodeKey(key []byte) (any, error) {
	if p := storage.ExtractPrefix(key); p != storage.PREFIX_DOCUMENT {
		return nil, fmt.Errorf("unexpected key prefix %d", p)
	}
	vals, err := storage.ExtractValues(key)
	if err != nil {
		return nil, err
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("unexpected key shape")
	}
	if vals[1].Type == storage.TYPE_INT64 {
		return vals[1].I64, nil
	}
	return string(vals[1].Str), nil
}

// Find scans the collection in key order
func (ks *KVStore) Find(ctx context.Context, q Query) ([]Document, error) {
	results := []Document{}
	var scanErr error

	err := ks.kv.Scan(ks.prefix(), func(key, val []byte) bool {
		if q.Limit > 0 && len(results) >= q.Limit {
			return false
		}
		if err := ctx.Err(); err != nil {
			scanErr = err
			return false
		}

		id, err := ks.decodeKey(key)
		if err != nil {
			scanErr = err
			return false
		}
		doc, err := ks.decode(id, val)
		if err != nil {
			scanErr = err
			return false
		}
		if q.Matches(doc) {
			results = append(results, doc)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return results, nil
}

// Get retrieves a document by id
func (ks *KVStore) Get(ctx context.Context, id any) (Document, error) {
	cid, err := ks.canonicalID(id)
	if err != nil {
		return nil, NotFoundError(id)
	}

	val, ok, err := ks.kv.Get(ks.keyFor(cid))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NotFoundError(id)
	}
	return ks.decode(cid, val)
}

// Create stores a new document, generating an id when data has none
func (ks *KVStore) Create(ctx context.Context, data Document) (Document, error) {
	doc := data.Clone()
	if doc == nil {
		doc = Document{}
	}

	var cid any
	if raw, ok := doc[ks.idField]; ok && raw != nil {
		var err error
		if cid, err = ks.canonicalID(raw); err != nil {
			return nil, err
		}
	} else if ks.ids == IDUUID {
		cid = uuid.NewString()
	} else {
		n, err := ks.kv.NextSequence(ks.collection)
		if err != nil {
			return nil, err
		}
		cid = int64(n)
	}
	doc[ks.idField] = cid

	val, err := ks.encode(doc)
	if err != nil {
		return nil, err
	}

	key := ks.keyFor(cid)
	err = ks.kv.Update(func(tx *storage.KVTX) error {
		_, exists, err := tx.Get(key)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("record with id '%v' already exists", cid)
		}
		return tx.Set(key, val)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Update replaces a document, keeping its id
func (ks *KVStore) Update(ctx context.Context, id any, data Document) (Document, error) {
	return ks.modify(id, func(old Document) Document {
		doc := data.Clone()
		if doc == nil {
			doc = Document{}
		}
		return doc
	})
}

// Patch merges data into a document
func (ks *KVStore) Patch(ctx context.Context, id any, data Document) (Document, error) {
	return ks.modify(id, func(old Document) Document {
		for k, v := range data {
			old[k] = v
		}
		return old
	})
}

// modify runs a read-modify-write of one document inside a single transaction
func (ks *KVStore) modify(id any, fn func(old Document) Document) (Document, error) {
	cid, err := ks.canonicalID(id)
	if err != nil {
		return nil, NotFoundError(id)
	}
	key := ks.keyFor(cid)

	var result Document
	err = ks.kv.Update(func(tx *storage.KVTX) error {
		val, ok, err := tx.Get(key)
		if err != nil {
			return err
		}
		if !ok {
			return NotFoundError(id)
		}
		old, err := ks.decode(cid, val)
		if err != nil {
			return err
		}

		doc := fn(old)
		doc[ks.idField] = cid

		encoded, err := ks.encode(doc)
		if err != nil {
			return err
		}
		result = doc
		return tx.Set(key, encoded)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Remove deletes a document and returns it
func (ks *KVStore) Remove(ctx context.Context, id any) (Document, error) {
	cid, err := ks.canonicalID(id)
	if err != nil {
		return nil, NotFoundError(id)
	}
	key := ks.keyFor(cid)

	var removed Document
	err = ks.kv.Update(func(tx *storage.KVTX) error {
		val, ok, err := tx.Get(key)
		if err != nil {
			return err
		}
		if !ok {
			return NotFoundError(id)
		}
		if removed, err = ks.decode(cid, val); err != nil {
			return err
		}
		_, err = tx.Del(key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
