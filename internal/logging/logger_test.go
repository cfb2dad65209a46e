package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, "WARN", LevelWarn.String())
}

func TestJSONLoggerAttachesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: LevelInfo}).
		WithComponent("runner").
		With("simulation_id", "sim-1")

	logger.Info("simulation completed", "interactions", 3)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "simulation completed", entry["msg"])
	assert.Equal(t, "runner", entry["component"])
	assert.Equal(t, "sim-1", entry["simulation_id"])
	assert.EqualValues(t, 3, entry["interactions"])
	assert.Equal(t, "runner", logger.Component())
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf, Format: "text", Level: LevelDebug}).Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}
