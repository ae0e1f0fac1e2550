package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "info", Output: &buf})

	log.Debug("hidden").Send()
	assert.Empty(t, buf.String())

	log.VersionLogger("messages").Info("recorded").Int("entries", 2).Send()
	out := buf.String()
	assert.Contains(t, out, `"service":"docversions"`)
	assert.Contains(t, out, `"component":"versions"`)
	assert.Contains(t, out, `"tracked_service":"messages"`)
	assert.Contains(t, out, `"entries":2`)
}

func TestLogDbOperationError(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "debug", Output: &buf})

	log.LogDbOperation("versions.find", time.Millisecond, 0, errors.New("disk gone"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "disk gone")
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Error("nothing").Send()
	log.LogGrpcRequest("/x", time.Second, nil)
}
