package version

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/docversions/pkg/app"
	"github.com/nainya/docversions/pkg/document"
)

func TestPruneOnRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{}, Config{})

	keep, err := f.messages.Create(ctx, document.Document{"body": "keep"}, nil)
	require.NoError(t, err)
	gone, err := f.messages.Create(ctx, document.Document{"body": "gone"}, nil)
	require.NoError(t, err)

	_, err = f.messages.Remove(ctx, gone["id"], nil)
	require.NoError(t, err)

	assert.Nil(t, f.history(t, gone))
	assert.NotNil(t, f.history(t, keep))
}

func TestPruneWithoutHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Mask: Include("title")}, Config{})

	doc, err := f.messages.Create(ctx, document.Document{"body": "masked"}, nil)
	require.NoError(t, err)

	_, err = f.messages.Remove(ctx, doc["id"], nil)
	assert.NoError(t, err)
}

func TestPruneKeepsSoftDeleted(t *testing.T) {
	ctx := context.Background()
	a := app.New()
	vs, err := Initialize(a, Config{})
	require.NoError(t, err)

	posts := a.Use("posts", &softStore{SimpleStore: document.NewSimpleStore("")})
	rec, err := NewRecorder(vs, Options{})
	require.NoError(t, err)
	rec.Attach(posts)
	pruner, err := NewPruner(vs)
	require.NoError(t, err)
	pruner.Attach(posts)

	doc, err := posts.Create(ctx, document.Document{"body": "a"}, nil)
	require.NoError(t, err)
	_, err = posts.Remove(ctx, doc["id"], nil)
	require.NoError(t, err)

	h, err := GetVersion(ctx, a, "posts", doc)
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestPrunePropagatesOtherErrors(t *testing.T) {
	ctx := context.Background()
	a := app.New()
	vs, err := Initialize(a, Config{})
	require.NoError(t, err)

	posts := a.Use("posts", &brokenGetStore{SimpleStore: document.NewSimpleStore("")})
	rec, err := NewRecorder(vs, Options{})
	require.NoError(t, err)
	rec.Attach(posts)
	pruner, err := NewPruner(vs)
	require.NoError(t, err)
	pruner.Attach(posts)

	doc, err := posts.Create(ctx, document.Document{"body": "a"}, nil)
	require.NoError(t, err)
	_, err = posts.Remove(ctx, doc["id"], nil)
	assert.ErrorIs(t, err, errStoreDown)

	h, err := GetVersion(ctx, a, "posts", doc)
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestPruneHookUsage(t *testing.T) {
	ctx := context.Background()
	a := app.New()
	_, err := Initialize(a, Config{})
	require.NoError(t, err)

	hook, err := ClearVersions(a)
	require.NoError(t, err)

	posts := a.Use("posts", document.NewSimpleStore(""))
	posts.After(app.Create, hook)

	_, err = posts.Create(ctx, document.Document{"body": "a"}, nil)
	var usage *app.UsageError
	require.True(t, errors.As(err, &usage))
	assert.Equal(t, "the 'clear-versions' hook can only be used on the 'remove' service method(s)", usage.Error())
}

func TestPruneNotInitialized(t *testing.T) {
	_, err := ClearVersions(app.New())
	assert.ErrorIs(t, err, ErrNotInitialized)
}
