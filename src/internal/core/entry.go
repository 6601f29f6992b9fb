package core

import (
	"encoding/json"
	"strings"
	"time"
)

// LogEntry represents a single log record flowing through the pipeline
type LogEntry struct {
	Time    time.Time       `json:"time"`
	Source  string          `json:"source"`
	Level   string          `json:"level,omitempty"`
	Message string          `json:"message"`
	Fields  json.RawMessage `json:"fields,omitempty"`
	Urgent  bool            `json:"urgent,omitempty"`
	RawSize int64           `json:"-"`
}

// Canonical severity level names
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

// NormalizeLevel maps common level spellings onto the canonical vocabulary.
// Unknown levels pass through upper-cased so filters can still match them.
func NormalizeLevel(level string) string {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DBG", "DEBUG":
		return LevelDebug
	case "", "INF", "INFO", "NOTICE":
		return LevelInfo
	case "WRN", "WARN", "WARNING":
		return LevelWarn
	case "ERR", "ERROR":
		return LevelError
	case "FATAL", "CRIT", "CRITICAL", "PANIC":
		return LevelFatal
	default:
		return strings.ToUpper(strings.TrimSpace(level))
	}
}
