package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Options{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	l.WithField("execution_id", 7).WithError(errors.New("boom")).Debug("step %s recorded", "build")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "step build recorded", line["msg"])
	assert.Equal(t, float64(7), line["execution_id"])
	assert.Equal(t, "boom", line["error"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_BadOptions(t *testing.T) {
	_, err := NewLogger(Options{Level: "loud"})
	assert.Error(t, err)
	_, err = NewLogger(Options{Format: "xml"})
	assert.Error(t, err)
}
