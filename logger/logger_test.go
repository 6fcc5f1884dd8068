package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false, "json")

	log.Info("document indexed", "document_id", "doc-1")
	log.Debug("hidden at info level")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "document indexed", record["msg"])
	assert.Equal(t, "doc-1", record["document_id"])
}

func TestNewTextDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true, "text")

	log.Debug("scan finished", "matches", 3)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "matches=3")
}

func TestSetupReplacesGlobal(t *testing.T) {
	previous := Logger
	t.Cleanup(func() { Logger = previous })

	Setup(true, "json")
	assert.NotSame(t, previous, Logger)
	assert.NotNil(t, WithComponent("server"))
	assert.NotNil(t, WithRequest("req-1"))
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("dropped")
	assert.NotNil(t, log)
}
