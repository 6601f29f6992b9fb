package format

import (
	"testing"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func testEntry() core.LogEntry {
	return core.LogEntry{
		Time:    time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Source:  "api",
		Level:   "ERROR",
		Message: "connection refused",
	}
}

func TestNewTextFormatter(t *testing.T) {
	logger := newTestLogger()

	t.Run("NilOptionsUseDefaults", func(t *testing.T) {
		f, err := NewTextFormatter(nil, logger)
		require.NoError(t, err)
		assert.Equal(t, "text", f.Name())
	})

	t.Run("InvalidTemplate", func(t *testing.T) {
		opts := &config.TextFormatterOptions{Template: "{{.Message"}
		_, err := NewTextFormatter(opts, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid template")
	})
}

func TestTextFormatterFormat(t *testing.T) {
	logger := newTestLogger()

	t.Run("DefaultTemplate", func(t *testing.T) {
		f, err := NewTextFormatter(nil, logger)
		require.NoError(t, err)

		out, err := f.Format(testEntry())
		require.NoError(t, err)
		assert.Equal(t, "[2025-03-14T09:26:53Z] [ERROR] api - connection refused\n", string(out))
	})

	t.Run("CustomTemplateAndTimestamp", func(t *testing.T) {
		f, err := NewTextFormatter(&config.TextFormatterOptions{
			Template:        "{{ToLower .Level}} {{.Message}}",
			TimestampFormat: "2006-01-02",
		}, logger)
		require.NoError(t, err)

		out, err := f.Format(testEntry())
		require.NoError(t, err)
		assert.Equal(t, "error connection refused\n", string(out))
	})

	t.Run("LevelNormalized", func(t *testing.T) {
		f, err := NewTextFormatter(&config.TextFormatterOptions{
			Template: "{{.Level}}",
		}, logger)
		require.NoError(t, err)

		entry := testEntry()
		entry.Level = "warning"
		out, err := f.Format(entry)
		require.NoError(t, err)
		assert.Equal(t, "WARN\n", string(out))
	})

	t.Run("NewlineAppendedOnce", func(t *testing.T) {
		f, err := NewTextFormatter(&config.TextFormatterOptions{
			Template: "{{.Message}}\n",
		}, logger)
		require.NoError(t, err)

		out, err := f.Format(testEntry())
		require.NoError(t, err)
		assert.Equal(t, "connection refused\n", string(out))
	})

	t.Run("FieldsExposedToTemplate", func(t *testing.T) {
		f, err := NewTextFormatter(&config.TextFormatterOptions{
			Template: "{{.Message}} {{.Fields}}",
		}, logger)
		require.NoError(t, err)

		entry := testEntry()
		entry.Fields = []byte(`{"request_id":"abc"}`)
		out, err := f.Format(entry)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"request_id":"abc"`)
	})
}

func TestRawFormatter(t *testing.T) {
	f, err := NewRawFormatter(newTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "raw", f.Name())

	out, err := f.Format(core.LogEntry{Message: "plain line"})
	require.NoError(t, err)
	assert.Equal(t, "plain line\n", string(out))
}
