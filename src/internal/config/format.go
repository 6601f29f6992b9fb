package config

import (
	"fmt"
	"time"
)

// FormatConfig selects and configures the formatter shared by a
// pipeline's sinks.
type FormatConfig struct {
	// Formatter name: "text", "jsonl" or "embed"
	Name string `toml:"name"`

	Text  *TextFormatterOptions  `toml:"text"`
	JSONL *JSONLFormatterOptions `toml:"jsonl"`
	Embed *EmbedFormatterOptions `toml:"embed"`
}

type TextFormatterOptions struct {
	// Go text/template over Timestamp, Level, Source, Message, Fields
	Template        string `toml:"template"`
	TimestampFormat string `toml:"timestamp_format"`
}

type JSONLFormatterOptions struct {
	// Maps output JSON keys to entry attributes
	// (message, level, source, timestamp, fields)
	FieldMap        map[string]string `toml:"field_map"`
	TimestampFormat string            `toml:"timestamp_format"`
}

type EmbedFormatterOptions struct {
	// Severity level to embed title, e.g. "ERROR" = "Error"
	Titles map[string]string `toml:"titles"`

	// Severity level to embed color, e.g. "ERROR" = 0xFF5733
	Colors map[string]int64 `toml:"colors"`

	// Extra inline embed fields: display name to entry attribute
	ExtraFields map[string]string `toml:"extra_fields"`

	FooterText string `toml:"footer_text"`
}

func DefaultTextOptions() *TextFormatterOptions {
	return &TextFormatterOptions{
		Template:        "[{{FmtTime .Timestamp}}] [{{.Level}}] {{.Source}} - {{.Message}}",
		TimestampFormat: time.RFC3339,
	}
}

func DefaultJSONLOptions() *JSONLFormatterOptions {
	return &JSONLFormatterOptions{
		FieldMap: map[string]string{
			"message":   "message",
			"level":     "level",
			"source":    "source",
			"timestamp": "timestamp",
		},
		TimestampFormat: time.RFC3339Nano,
	}
}

var entryAttributes = map[string]bool{
	"message":   true,
	"level":     true,
	"source":    true,
	"timestamp": true,
	"fields":    true,
}

func (f *FormatConfig) validate() error {
	switch f.Name {
	case "", "text", "raw":
	case "jsonl":
		if f.JSONL != nil {
			for key, attr := range f.JSONL.FieldMap {
				if !entryAttributes[attr] {
					return fmt.Errorf("jsonl field_map '%s' references unknown attribute '%s'", key, attr)
				}
			}
		}
	case "embed":
		if f.Embed != nil {
			for name, attr := range f.Embed.ExtraFields {
				if !entryAttributes[attr] {
					return fmt.Errorf("embed extra field '%s' references unknown attribute '%s'", name, attr)
				}
			}
		}
	default:
		return fmt.Errorf("unknown formatter '%s'", f.Name)
	}
	return nil
}
