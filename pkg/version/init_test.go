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

func TestInitialize(t *testing.T) {
	a := app.New()
	assert.Nil(t, GetVersionService(a))
	assert.Nil(t, GetVersionService(nil))

	vs, err := Initialize(a, Config{ServiceName: "history"})
	require.NoError(t, err)
	assert.Equal(t, "history", vs.Name())
	assert.Same(t, vs, GetVersionService(a))
	assert.Same(t, vs.Service(), a.Service("history"))

	_, err = Initialize(a, Config{ServiceName: "other"})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestInitializeErrors(t *testing.T) {
	var cfgErr *ConfigError

	_, err := Initialize(nil, Config{})
	assert.True(t, errors.As(err, &cfgErr))

	a := app.New()
	a.Use("versions", document.NewSimpleStore(""))
	_, err = Initialize(a, Config{})
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "serviceName", cfgErr.Field)

	_, err = Initialize(app.New(), Config{ServiceName: "bad name"})
	assert.True(t, errors.As(err, &cfgErr))
}

func TestVersionStoreRejectsExternalWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{}, Config{})
	external := &app.Params{Provider: "grpc"}
	versions := f.vs.Service()

	_, err := versions.Create(ctx, document.Document{"document": 1, "service": "messages"}, external)
	var appErr *app.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 405, appErr.Code)

	doc, err := f.messages.Create(ctx, document.Document{"body": "a"}, nil)
	require.NoError(t, err)
	h := f.history(t, doc)

	for _, call := range []func() error{
		func() error { _, err := versions.Patch(ctx, h.ID, document.Document{"list": nil}, external); return err },
		func() error { _, err := versions.Update(ctx, h.ID, document.Document{}, external); return err },
		func() error { _, err := versions.Remove(ctx, h.ID, external); return err },
	} {
		err := call()
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, 405, appErr.Code)
	}

	// reads stay open
	docs, err := versions.Find(ctx, document.Query{}, external)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Len(t, f.history(t, doc).List, 1)
}

func TestVersionStoreCastsQueryDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{}, Config{})

	_, err := f.messages.Create(ctx, document.Document{"id": 3, "body": "a"}, nil)
	require.NoError(t, err)

	docs, err := f.vs.Service().Find(ctx, document.Query{Fields: map[string]any{"document": "3"}}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(3), docs[0]["document"])

	_, err = f.vs.Service().Find(ctx, document.Query{Fields: map[string]any{"document": "three"}}, nil)
	var appErr *app.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.Code)
}
