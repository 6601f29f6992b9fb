package sink

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"
	"logrelay/src/internal/format"

	"github.com/lixenwraith/log"
)

// ConsoleSink writes log entries to stdout or stderr. In "split" mode
// WARN and above go to stderr, everything else to stdout.
type ConsoleSink struct {
	input     chan core.LogEntry
	target    string
	stdout    io.Writer
	stderr    io.Writer
	done      chan struct{}
	startTime time.Time
	logger    *log.Logger
	formatter format.Formatter

	// Statistics
	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewConsoleSink creates a new console sink
func NewConsoleSink(opts *config.ConsoleSinkOptions, logger *log.Logger, formatter format.Formatter) (*ConsoleSink, error) {
	target := "stdout"
	bufferSize := int64(1000)
	if opts != nil {
		if opts.Target != "" {
			target = opts.Target
		}
		if opts.BufferSize > 0 {
			bufferSize = opts.BufferSize
		}
	}

	s := &ConsoleSink{
		input:     make(chan core.LogEntry, bufferSize),
		target:    target,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
		formatter: formatter,
	}
	s.lastProcessed.Store(time.Time{})

	return s, nil
}

func (s *ConsoleSink) Input() chan<- core.LogEntry {
	return s.input
}

func (s *ConsoleSink) Start(ctx context.Context) error {
	go s.processLoop(ctx)
	s.logger.Info("msg", "Console sink started",
		"component", "console_sink",
		"target", s.target)
	return nil
}

func (s *ConsoleSink) Stop() {
	s.logger.Info("msg", "Stopping console sink")
	close(s.done)
	s.logger.Info("msg", "Console sink stopped")
}

func (s *ConsoleSink) GetStats() SinkStats {
	lastProc, _ := s.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "console",
		TotalProcessed: s.totalProcessed.Load(),
		StartTime:      s.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"target": s.target,
		},
	}
}

func (s *ConsoleSink) processLoop(ctx context.Context) {
	for {
		select {
		case entry, ok := <-s.input:
			if !ok {
				return
			}

			s.totalProcessed.Add(1)
			s.lastProcessed.Store(time.Now())

			formatted, err := s.formatter.Format(entry)
			if err != nil {
				s.logger.Error("msg", "Failed to format log entry for console",
					"component", "console_sink",
					"error", err)
				continue
			}
			s.writerFor(entry).Write(formatted)

		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (s *ConsoleSink) writerFor(entry core.LogEntry) io.Writer {
	switch s.target {
	case "stderr":
		return s.stderr
	case "split":
		switch core.NormalizeLevel(entry.Level) {
		case core.LevelWarn, core.LevelError, core.LevelFatal:
			return s.stderr
		}
		return s.stdout
	default:
		return s.stdout
	}
}
