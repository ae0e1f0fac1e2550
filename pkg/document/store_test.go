// ABOUTME: Contract tests shared by the in-memory and badger document stores
// ABOUTME: Every adapter must behave the same for the versioning plugin

package document

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/docversions/pkg/storage"
)

func newKVStore(t *testing.T, ids IDStrategy) *KVStore {
	t.Helper()
	kv, err := storage.Open(storage.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewKVStore(kv, "messages", "", ids)
}

func storesUnderTest(t *testing.T) map[string]Store {
	return map[string]Store{
		"simple":      NewSimpleStore(""),
		"kv-sequence": newKVStore(t, IDSequence),
		"kv-uuid":     newKVStore(t, IDUUID),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "id", store.IDField())

			created, err := store.Create(ctx, Document{"body": "wee", "n": 1})
			require.NoError(t, err)
			id := created["id"]
			require.NotNil(t, id)

			got, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "wee", got["body"])
			assert.True(t, ValuesEqual(1, got["n"]))

			patched, err := store.Patch(ctx, id, Document{"body": "woo", "id": "ignored"})
			require.NoError(t, err)
			assert.Equal(t, "woo", patched["body"])
			assert.True(t, ValuesEqual(1, patched["n"]))
			assert.Equal(t, id, patched["id"])

			updated, err := store.Update(ctx, id, Document{"title": "x"})
			require.NoError(t, err)
			assert.Equal(t, "x", updated["title"])
			_, hasBody := updated["body"]
			assert.False(t, hasBody)
			assert.Equal(t, id, updated["id"])

			_, err = store.Create(ctx, Document{"body": "second"})
			require.NoError(t, err)

			found, err := store.Find(ctx, Query{Fields: map[string]any{"title": "x"}})
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, id, found[0]["id"])

			all, err := store.Find(ctx, Query{})
			require.NoError(t, err)
			assert.Len(t, all, 2)

			limited, err := store.Find(ctx, Query{Limit: 1})
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			removed, err := store.Remove(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "x", removed["title"])

			_, err = store.Get(ctx, id)
			assert.True(t, errors.Is(err, ErrNotFound))
			_, err = store.Patch(ctx, id, Document{"a": 1})
			assert.True(t, errors.Is(err, ErrNotFound))
			_, err = store.Remove(ctx, id)
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestSimpleStoreIDsStartAtZero(t *testing.T) {
	ctx := context.Background()
	store := NewSimpleStore("")

	first, err := store.Create(ctx, Document{"a": 1})
	require.NoError(t, err)
	second, err := store.Create(ctx, Document{"a": 2})
	require.NoError(t, err)

	assert.Equal(t, int64(0), first["id"])
	assert.Equal(t, int64(1), second["id"])

	// numeric kinds address the same record
	got, err := store.Get(ctx, float64(1))
	require.NoError(t, err)
	assert.True(t, ValuesEqual(2, got["a"]))
	assert.Equal(t, 2, store.Len())
}

func TestSimpleStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewSimpleStore("_id")

	created, err := store.Create(ctx, Document{"body": "original"})
	require.NoError(t, err)
	created["body"] = "mutated"

	got, err := store.Get(ctx, created["_id"])
	require.NoError(t, err)
	assert.Equal(t, "original", got["body"])
}

func TestCreateWithExplicitID(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Create(ctx, Document{"id": "42", "v": true})
			require.NoError(t, err)

			got, err := store.Get(ctx, "42")
			require.NoError(t, err)
			assert.Equal(t, true, got["v"])

			_, err = store.Create(ctx, Document{"id": "42"})
			assert.Error(t, err)
		})
	}
}

func TestKVStoreSequenceIDs(t *testing.T) {
	ctx := context.Background()
	store := newKVStore(t, IDSequence)

	a, err := store.Create(ctx, Document{})
	require.NoError(t, err)
	b, err := store.Create(ctx, Document{})
	require.NoError(t, err)

	assert.Equal(t, int64(0), a["id"])
	assert.Equal(t, int64(1), b["id"])

	_, err = store.Get(ctx, "not-a-number")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestKVStoreDecodeKeyChecksPrefix(t *testing.T) {
	store := newKVStore(t, IDSequence)

	id, err := store.decodeKey(storage.EncodeKey(storage.PREFIX_DOCUMENT,
		storage.NewStringValue("messages"), storage.NewInt64Value(7)))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = store.decodeKey(storage.EncodeKey(storage.PREFIX_SEQUENCE,
		storage.NewStringValue("messages"), storage.NewInt64Value(7)))
	assert.Error(t, err)
}

func TestParseIDStrategy(t *testing.T) {
	s, err := ParseIDStrategy("")
	require.NoError(t, err)
	assert.Equal(t, IDSequence, s)

	s, err = ParseIDStrategy("uuid")
	require.NoError(t, err)
	assert.Equal(t, IDUUID, s)

	_, err = ParseIDStrategy("snowflake")
	assert.Error(t, err)
}

func TestValuesEqualAndNormalize(t *testing.T) {
	assert.True(t, ValuesEqual(int64(3), float64(3)))
	assert.True(t, ValuesEqual("a", "a"))
	assert.False(t, ValuesEqual("3", 3))
	assert.False(t, ValuesEqual(1, 2))

	norm, err := Normalize(Document{"n": 1, "nested": map[string]int{"x": 2}, "list": []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, Document{
		"n":      float64(1),
		"nested": map[string]any{"x": float64(2)},
		"list":   []any{"a"},
	}, norm)

	norm, err = Normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, norm)

	_, err = Normalize(Document{"bad": make(chan int)})
	assert.Error(t, err)
}
