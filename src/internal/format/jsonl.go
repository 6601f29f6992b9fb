package format

import (
	"encoding/json"
	"fmt"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"

	"github.com/lixenwraith/log"
)

// JSONLFormatter produces one JSON object per entry with configurable
// field naming.
type JSONLFormatter struct {
	config *config.JSONLFormatterOptions
	logger *log.Logger
}

// NewJSONLFormatter creates a new JSON-lines formatter from
// configuration options.
func NewJSONLFormatter(opts *config.JSONLFormatterOptions, logger *log.Logger) (*JSONLFormatter, error) {
	if opts == nil {
		opts = config.DefaultJSONLOptions()
	}
	if len(opts.FieldMap) == 0 {
		opts.FieldMap = config.DefaultJSONLOptions().FieldMap
	}
	if opts.TimestampFormat == "" {
		opts.TimestampFormat = time.RFC3339Nano
	}

	return &JSONLFormatter{
		config: opts,
		logger: logger,
	}, nil
}

// Format transforms a single LogEntry into a JSON line.
func (f *JSONLFormatter) Format(entry core.LogEntry) ([]byte, error) {
	output := make(map[string]any, len(f.config.FieldMap)+2)

	for key, attr := range f.config.FieldMap {
		output[key] = f.attribute(entry, attr)
	}

	// Message and timestamp are always carried, under their default
	// names when the map does not claim them
	if !f.mapped("message") {
		output["message"] = entry.Message
	}
	if !f.mapped("timestamp") {
		output["timestamp"] = entry.Time.UTC().Format(f.config.TimestampFormat)
	}

	// Merge caller-attached fields without overriding mapped keys
	if len(entry.Fields) > 0 {
		var fields map[string]any
		if err := json.Unmarshal(entry.Fields, &fields); err == nil {
			for k, v := range fields {
				if _, exists := output[k]; !exists {
					output[k] = v
				}
			}
		} else {
			f.logger.Debug("msg", "Dropping unparsable entry fields",
				"component", "jsonl_formatter",
				"error", err)
		}
	}

	result, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return append(result, '\n'), nil
}

// Name returns the formatter's type name.
func (f *JSONLFormatter) Name() string {
	return "jsonl"
}

func (f *JSONLFormatter) attribute(entry core.LogEntry, attr string) any {
	switch attr {
	case "message":
		return entry.Message
	case "level":
		return core.NormalizeLevel(entry.Level)
	case "source":
		return entry.Source
	case "timestamp":
		return entry.Time.UTC().Format(f.config.TimestampFormat)
	case "fields":
		if len(entry.Fields) == 0 {
			return nil
		}
		return entry.Fields
	default:
		return nil
	}
}

func (f *JSONLFormatter) mapped(attr string) bool {
	for _, a := range f.config.FieldMap {
		if a == attr {
			return true
		}
	}
	return false
}
