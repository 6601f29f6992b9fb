package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/format"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileSink(t *testing.T) {
	logger := log.NewLogger()
	formatter, err := format.NewRawFormatter(logger)
	require.NoError(t, err)

	t.Run("NilOptions", func(t *testing.T) {
		_, err := NewFileSink(nil, logger, formatter)
		assert.Error(t, err)
	})

	t.Run("InvalidRotationUnit", func(t *testing.T) {
		opts := &config.FileSinkOptions{
			Path: filepath.Join(t.TempDir(), "app.log"),
			When: "fortnight",
		}
		_, err := NewFileSink(opts, logger, formatter)
		assert.Error(t, err)
	})

	t.Run("DefaultsApplied", func(t *testing.T) {
		opts := &config.FileSinkOptions{
			Path: filepath.Join(t.TempDir(), "app.log"),
		}
		fs, err := NewFileSink(opts, logger, formatter)
		require.NoError(t, err)
		assert.NotNil(t, fs)
	})
}

func TestFileSinkWritesEntries(t *testing.T) {
	logger := log.NewLogger()
	formatter, err := format.NewRawFormatter(logger)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "app.log")
	fs, err := NewFileSink(&config.FileSinkOptions{Path: path}, logger, formatter)
	require.NoError(t, err)

	require.NoError(t, fs.Start(context.Background()))

	fs.Input() <- infoEntry("first line")
	fs.Input() <- infoEntry("second line")

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "first line\nsecond line\n"
	}, 2*time.Second, 10*time.Millisecond)

	fs.Stop()

	stats := fs.GetStats()
	assert.Equal(t, "file", stats.Type)
	assert.Equal(t, uint64(2), stats.TotalProcessed)
}

func TestFileSinkRotatesBySize(t *testing.T) {
	logger := log.NewLogger()
	formatter, err := format.NewRawFormatter(logger)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "app.log")
	fs, err := NewFileSink(&config.FileSinkOptions{
		Path:        path,
		MaxBytes:    10,
		BackupCount: 1,
	}, logger, formatter)
	require.NoError(t, err)

	require.NoError(t, fs.Start(context.Background()))
	defer fs.Stop()

	fs.Input() <- infoEntry("first message")
	fs.Input() <- infoEntry("second message")

	assert.Eventually(t, func() bool {
		backup, err := os.ReadFile(path + ".1")
		if err != nil {
			return false
		}
		live, err := os.ReadFile(path)
		return err == nil &&
			string(backup) == "first message\n" &&
			string(live) == "second message\n"
	}, 2*time.Second, 10*time.Millisecond)
}
