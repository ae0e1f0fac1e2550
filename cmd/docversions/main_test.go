package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/docversions/internal/config"
	"github.com/nainya/docversions/internal/logger"
	"github.com/nainya/docversions/pkg/document"
	"github.com/nainya/docversions/pkg/version"
)

func testConfig(t *testing.T, raw string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(raw))
	require.NoError(t, err)
	return cfg
}

func TestBuildAppTracksConfiguredServices(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, `
services:
  - name: messages
    track: true
    limit: 2
  - name: drafts
`)

	rt, err := buildApp(cfg, logger.Nop(), nil)
	require.NoError(t, err)
	defer rt.Close()

	assert.Same(t, rt.versions, version.GetVersionService(rt.app))

	messages := rt.app.Service("messages")
	doc, err := messages.Create(ctx, document.Document{"n": 0}, nil)
	require.NoError(t, err)
	for n := 1; n <= 3; n++ {
		_, err := messages.Patch(ctx, doc["id"], document.Document{"n": n}, nil)
		require.NoError(t, err)
	}
	h, err := version.GetVersion(ctx, rt.app, "messages", doc)
	require.NoError(t, err)
	require.Len(t, h.List, 2)

	drafts := rt.app.Service("drafts")
	draft, err := drafts.Create(ctx, document.Document{"body": "x"}, nil)
	require.NoError(t, err)
	h, err = version.GetVersion(ctx, rt.app, "drafts", draft)
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestBuildAppRejectsServiceNamedLikeVersions(t *testing.T) {
	cfg := testConfig(t, `
services:
  - name: versions
`)
	_, err := buildApp(cfg, logger.Nop(), nil)
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	raw := `
storage:
  adapter: badger
  path: ` + filepath.Join(dir, "data") + `
services:
  - name: messages
    track: true
    excludeMask: [id]
`
	path := filepath.Join(dir, "docversions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	rt, err := buildApp(testConfig(t, raw), logger.Nop(), nil)
	require.NoError(t, err)
	doc, err := rt.app.Service("messages").Create(ctx, document.Document{"body": "wee"}, nil)
	require.NoError(t, err)
	_, err = rt.app.Service("messages").Patch(ctx, doc["id"], document.Document{"body": "woo"}, nil)
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"history", "--config", path, "--service", "messages", "--id", "0"})
	require.NoError(t, cmd.Execute())

	var h version.History
	require.NoError(t, json.Unmarshal(out.Bytes(), &h))
	assert.Equal(t, "messages", h.Service)
	require.Len(t, h.List, 2)
	assert.Equal(t, document.Document{"body": "wee"}, h.List[0].Data)
	assert.Equal(t, document.Document{"body": "woo"}, h.List[1].Data)

	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"history", "--config", path, "--service", "messages", "--id", "7"})
	assert.Error(t, cmd.Execute())
}

func TestHistoryNeedsBadger(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"history", "--service", "messages", "--id", "1"})
	t.Setenv(configEnv, "")
	assert.Error(t, cmd.Execute())
}
