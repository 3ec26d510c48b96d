package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "mid", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, float64(7), line["mid"])
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, "DEBUG", "text")
	require.NoError(t, err)

	logger.Debug("dry run", "ndry_runs", 2)
	assert.Contains(t, buf.String(), "ndry_runs=2")
}

func TestRejectsUnknownSettings(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, "loud", "json")
	assert.Error(t, err)

	_, err = NewWriter(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
