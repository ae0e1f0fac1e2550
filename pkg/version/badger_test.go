package version

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/docversions/pkg/app"
	"github.com/nainya/docversions/pkg/document"
	"github.com/nainya/docversions/pkg/storage"
)

func TestVersionsOnBadger(t *testing.T) {
	ctx := context.Background()
	kv, err := storage.Open(storage.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	clock := newFakeClock()
	a := app.New()
	vs, err := Initialize(a, Config{
		Adapter: document.NewKVStore(kv, "versions", "", document.IDUUID),
		Clock:   clock.Now,
	})
	require.NoError(t, err)

	messages := a.Use("messages", document.NewKVStore(kv, "messages", "", document.IDSequence))
	rec, err := NewRecorder(vs, Options{Limit: 3, SaveInterval: time.Minute, Mask: Exclude("id")})
	require.NoError(t, err)
	rec.Attach(messages)
	pruner, err := NewPruner(vs)
	require.NoError(t, err)
	pruner.Attach(messages)

	doc, err := messages.Create(ctx, document.Document{"body": "v0", "meta": map[string]any{"n": 1}}, nil)
	require.NoError(t, err)

	for i, body := range []string{"v1", "v2", "v3", "v4"} {
		clock.Advance(2 * time.Minute)
		_, err := messages.Patch(ctx, doc["id"], document.Document{"body": body}, nil)
		require.NoError(t, err, "patch %d", i)
	}

	// unchanged
	clock.Advance(2 * time.Minute)
	_, err = messages.Patch(ctx, doc["id"], document.Document{"body": "v4"}, nil)
	require.NoError(t, err)

	// coalesced into v5
	last := clock.Now()
	_, err = messages.Patch(ctx, doc["id"], document.Document{"body": "v5"}, nil)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = messages.Patch(ctx, doc["id"], document.Document{"body": "v6"}, nil)
	require.NoError(t, err)

	h, err := GetVersion(ctx, a, "messages", doc)
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Len(t, h.List, 3)
	assert.Equal(t, "v3", h.List[0].Data["body"])
	assert.Equal(t, "v4", h.List[1].Data["body"])
	assert.Equal(t, document.Document{"body": "v6", "meta": map[string]any{"n": float64(1)}}, h.List[2].Data)
	assert.True(t, last.Equal(h.List[2].Saved))

	_, err = messages.Remove(ctx, doc["id"], nil)
	require.NoError(t, err)

	h, err = GetVersion(ctx, a, "messages", doc)
	require.NoError(t, err)
	assert.Nil(t, h)
}
