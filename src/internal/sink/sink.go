package sink

import (
	"context"
	"fmt"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"
	"logrelay/src/internal/format"

	"github.com/lixenwraith/log"
)

// Sink represents an output destination for log entries
type Sink interface {
	// Input returns the channel for sending log entries to this sink
	Input() chan<- core.LogEntry

	// Start begins processing log entries
	Start(ctx context.Context) error

	// Stop gracefully shuts down the sink
	Stop()

	// GetStats returns sink statistics
	GetStats() SinkStats
}

// SinkStats contains statistics about a sink
type SinkStats struct {
	Type           string
	TotalProcessed uint64
	StartTime      time.Time
	LastProcessed  time.Time
	Details        map[string]any
}

// New creates a sink from configuration.
func New(cfg config.SinkConfig, logger *log.Logger, formatter format.Formatter) (Sink, error) {
	switch cfg.Type {
	case "console":
		return NewConsoleSink(cfg.Console, logger, formatter)
	case "file":
		return NewFileSink(cfg.File, logger, formatter)
	case "discord":
		return NewDiscordSink(cfg.Discord, logger, formatter)
	default:
		return nil, fmt.Errorf("unknown sink type '%s'", cfg.Type)
	}
}
