package sink

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"
	"logrelay/src/internal/format"
	"logrelay/src/internal/rotate"

	"github.com/lixenwraith/log"
)

// Writes log entries to a file with dual size/time rotation
type FileSink struct {
	input     chan core.LogEntry
	writer    *rotate.Writer
	done      chan struct{}
	startTime time.Time
	logger    *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	writeFailures  atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// Creates a new file sink
func NewFileSink(opts *config.FileSinkOptions, logger *log.Logger, formatter format.Formatter) (*FileSink, error) {
	if opts == nil {
		return nil, fmt.Errorf("file sink requires options")
	}

	policy := rotate.Policy{
		MaxBytes:    opts.MaxBytes,
		BackupCount: opts.BackupCount,
		When:        rotate.When(strings.ToUpper(opts.When)),
		Interval:    opts.Interval,
		AtTime:      opts.AtTime,
		Naming:      rotate.Naming(opts.BackupNaming),
	}
	if opts.When == "" {
		policy.When = rotate.Midnight
	}
	if opts.Interval <= 0 {
		policy.Interval = 1
	}

	mode := opts.Mode
	if mode == "" {
		mode = "append"
	}

	var writer *rotate.Writer
	var err error
	if strings.HasSuffix(opts.Path, ".jsonl") {
		writer, err = rotate.NewJSONL(opts.Path, mode, policy, formatter, logger)
	} else {
		writer, err = rotate.New(opts.Path, mode, policy, formatter, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file writer: %w", err)
	}

	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	fs := &FileSink{
		input:     make(chan core.LogEntry, bufferSize),
		writer:    writer,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
	}
	fs.lastProcessed.Store(time.Time{})

	return fs, nil
}

func (fs *FileSink) Input() chan<- core.LogEntry {
	return fs.input
}

func (fs *FileSink) Start(ctx context.Context) error {
	go fs.processLoop(ctx)
	fs.logger.Info("msg", "File sink started", "component", "file_sink")
	return nil
}

func (fs *FileSink) Stop() {
	fs.logger.Info("msg", "Stopping file sink")
	close(fs.done)

	if err := fs.writer.Close(); err != nil {
		fs.logger.Error("msg", "Error closing file writer",
			"component", "file_sink",
			"error", err)
	}

	fs.logger.Info("msg", "File sink stopped")
}

func (fs *FileSink) GetStats() SinkStats {
	lastProc, _ := fs.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "file",
		TotalProcessed: fs.totalProcessed.Load(),
		StartTime:      fs.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"write_failures": fs.writeFailures.Load(),
		},
	}
}

func (fs *FileSink) processLoop(ctx context.Context) {
	for {
		select {
		case entry, ok := <-fs.input:
			if !ok {
				return
			}

			fs.totalProcessed.Add(1)
			fs.lastProcessed.Store(time.Now())

			if err := fs.writer.Emit(entry); err != nil {
				fs.writeFailures.Add(1)
				fs.logger.Error("msg", "Failed to write log entry",
					"component", "file_sink",
					"error", err)
			}

		case <-ctx.Done():
			return
		case <-fs.done:
			return
		}
	}
}
