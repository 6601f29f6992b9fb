package format

import (
	"encoding/json"
	"fmt"
	"sync"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter defines the interface for transforming a LogEntry into a
// byte slice.
type Formatter interface {
	// Format takes a LogEntry and returns the formatted log as a byte slice.
	Format(entry core.LogEntry) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// EmbedBatchFormatter is the optional structured path. A formatter
// implementing it can render entries as Discord embeds, and the webhook
// sink prefers its batch method over per-record formatting.
type EmbedBatchFormatter interface {
	FormatEmbed(entry core.LogEntry) (core.Embed, error)
	FormatEmbedBatch(entries []core.LogEntry) ([]core.Embed, error)
}

// New creates a new Formatter based on the provided configuration.
func New(cfg config.FormatConfig, logger *log.Logger) (Formatter, error) {
	// Default to text if no format specified
	name := cfg.Name
	if name == "" {
		name = "text"
	}

	switch name {
	case "text":
		return NewTextFormatter(cfg.Text, logger)
	case "raw":
		return NewRawFormatter(logger)
	case "jsonl":
		return NewJSONLFormatter(cfg.JSONL, logger)
	case "embed":
		return NewEmbedFormatter(cfg.Embed, logger)
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", name)
	}
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]Formatter)
)

// GetOrCreate returns a process-wide shared formatter for the given
// configuration, constructing it on first use. Formatters are
// stateless after construction, so one instance per distinct
// configuration can serve every sink.
func GetOrCreate(cfg config.FormatConfig, logger *log.Logger) (Formatter, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("unencodable formatter config: %w", err)
	}
	key := cfg.Name + "|" + string(raw)

	registryMu.Lock()
	defer registryMu.Unlock()

	if f, ok := registry[key]; ok {
		return f, nil
	}

	f, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	registry[key] = f
	return f, nil
}
