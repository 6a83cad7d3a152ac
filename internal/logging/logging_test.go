package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, SetupWriter(&buf, "warn", "json"))

	slog.Info("dropped")
	slog.Warn("kept", "group", "g1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "g1", line["group"])
}

func TestSetup_Errors(t *testing.T) {
	var buf bytes.Buffer

	assert.Error(t, SetupWriter(&buf, "loud", "text"))
	assert.Error(t, SetupWriter(&buf, "info", "xml"))
}
