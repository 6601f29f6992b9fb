package filter

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"

	"github.com/lixenwraith/log"
)

// Filter decides whether a log entry passes a single filter stage.
type Filter interface {
	Apply(entry core.LogEntry) bool
	GetStats() map[string]any
}

// New creates a filter from configuration.
func New(cfg config.FilterConfig, logger *log.Logger) (Filter, error) {
	if cfg.Type == "" {
		cfg.Type = config.FilterTypeInclude
	}
	if cfg.Logic == "" {
		cfg.Logic = config.FilterLogicOr
	}

	switch cfg.Type {
	case config.FilterTypeInclude, config.FilterTypeExclude:
		return newPatternFilter(cfg, logger)
	case config.FilterTypeLevels:
		return newLevelFilter(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown filter type '%s'", cfg.Type)
	}
}

// PatternFilter applies regex-based filtering to log entries.
type PatternFilter struct {
	config   config.FilterConfig
	patterns []*regexp.Regexp
	logger   *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalMatched   atomic.Uint64
	totalDropped   atomic.Uint64
}

func newPatternFilter(cfg config.FilterConfig, logger *log.Logger) (*PatternFilter, error) {
	f := &PatternFilter{
		config:   cfg,
		patterns: make([]*regexp.Regexp, 0, len(cfg.Patterns)),
		logger:   logger,
	}

	for i, pattern := range cfg.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
		f.patterns = append(f.patterns, re)
	}

	logger.Debug("msg", "Pattern filter created",
		"component", "filter",
		"type", cfg.Type,
		"logic", cfg.Logic,
		"pattern_count", len(cfg.Patterns))

	return f, nil
}

// Apply checks if a log entry should be passed through.
func (f *PatternFilter) Apply(entry core.LogEntry) bool {
	f.totalProcessed.Add(1)

	// No patterns means pass everything
	if len(f.patterns) == 0 {
		return true
	}

	// Check against all fields that might contain the log content
	text := entry.Message
	if entry.Level != "" {
		text = entry.Level + " " + text
	}
	if entry.Source != "" {
		text = entry.Source + " " + text
	}

	matched := f.matches(text)
	if matched {
		f.totalMatched.Add(1)
	}

	shouldPass := false
	switch f.config.Type {
	case config.FilterTypeInclude:
		shouldPass = matched
	case config.FilterTypeExclude:
		shouldPass = !matched
	}

	if !shouldPass {
		f.totalDropped.Add(1)
	}

	return shouldPass
}

// matches checks if text matches the patterns according to the logic.
func (f *PatternFilter) matches(text string) bool {
	switch f.config.Logic {
	case config.FilterLogicOr:
		// Match any pattern
		for _, re := range f.patterns {
			if re.MatchString(text) {
				return true
			}
		}
		return false

	case config.FilterLogicAnd:
		// Must match all patterns
		for _, re := range f.patterns {
			if !re.MatchString(text) {
				return false
			}
		}
		return true

	default:
		// Shouldn't happen after validation
		f.logger.Warn("msg", "Unknown filter logic",
			"component", "filter",
			"logic", f.config.Logic)
		return false
	}
}

// GetStats returns filter statistics.
func (f *PatternFilter) GetStats() map[string]any {
	return map[string]any{
		"type":            f.config.Type,
		"logic":           f.config.Logic,
		"pattern_count":   len(f.patterns),
		"total_processed": f.totalProcessed.Load(),
		"total_matched":   f.totalMatched.Load(),
		"total_dropped":   f.totalDropped.Load(),
	}
}

// LevelFilter drops entries whose severity appears in its block list.
// Level names are normalized before comparison, so "warning" and
// "WARN" block the same entries.
type LevelFilter struct {
	blocked map[string]struct{}
	logger  *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalDropped   atomic.Uint64
}

func newLevelFilter(cfg config.FilterConfig, logger *log.Logger) (*LevelFilter, error) {
	f := &LevelFilter{
		blocked: make(map[string]struct{}, len(cfg.Levels)),
		logger:  logger,
	}
	for _, level := range cfg.Levels {
		f.blocked[core.NormalizeLevel(level)] = struct{}{}
	}

	logger.Debug("msg", "Level filter created",
		"component", "filter",
		"blocked_count", len(f.blocked))

	return f, nil
}

// Apply checks if a log entry should be passed through.
func (f *LevelFilter) Apply(entry core.LogEntry) bool {
	f.totalProcessed.Add(1)

	if _, drop := f.blocked[core.NormalizeLevel(entry.Level)]; drop {
		f.totalDropped.Add(1)
		return false
	}
	return true
}

// GetStats returns filter statistics.
func (f *LevelFilter) GetStats() map[string]any {
	blocked := make([]string, 0, len(f.blocked))
	for level := range f.blocked {
		blocked = append(blocked, level)
	}
	return map[string]any{
		"type":            config.FilterTypeLevels,
		"blocked_levels":  blocked,
		"total_processed": f.totalProcessed.Load(),
		"total_dropped":   f.totalDropped.Load(),
	}
}
