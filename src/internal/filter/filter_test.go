package filter

import (
	"testing"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNew(t *testing.T) {
	logger := newTestLogger()

	t.Run("SuccessWithDefaults", func(t *testing.T) {
		cfg := config.FilterConfig{Patterns: []string{"test"}}
		f, err := New(cfg, logger)
		assert.NoError(t, err)
		require.NotNil(t, f)
		pf, ok := f.(*PatternFilter)
		require.True(t, ok)
		assert.Equal(t, config.FilterTypeInclude, pf.config.Type)
		assert.Equal(t, config.FilterLogicOr, pf.config.Logic)
	})

	t.Run("SuccessWithCustomConfig", func(t *testing.T) {
		cfg := config.FilterConfig{
			Type:     config.FilterTypeExclude,
			Logic:    config.FilterLogicAnd,
			Patterns: []string{"test", "pattern"},
		}
		f, err := New(cfg, logger)
		assert.NoError(t, err)
		require.NotNil(t, f)
		pf, ok := f.(*PatternFilter)
		require.True(t, ok)
		assert.Equal(t, config.FilterTypeExclude, pf.config.Type)
		assert.Equal(t, config.FilterLogicAnd, pf.config.Logic)
		assert.Len(t, pf.patterns, 2)
	})

	t.Run("SuccessLevelFilter", func(t *testing.T) {
		cfg := config.FilterConfig{Type: config.FilterTypeLevels, Levels: []string{"debug"}}
		f, err := New(cfg, logger)
		assert.NoError(t, err)
		require.NotNil(t, f)
		_, ok := f.(*LevelFilter)
		assert.True(t, ok)
	})

	t.Run("ErrorInvalidRegex", func(t *testing.T) {
		cfg := config.FilterConfig{Patterns: []string{"["}}
		f, err := New(cfg, logger)
		assert.Error(t, err)
		assert.Nil(t, f)
		assert.Contains(t, err.Error(), "invalid regex pattern")
	})

	t.Run("ErrorUnknownType", func(t *testing.T) {
		cfg := config.FilterConfig{Type: "squelch"}
		f, err := New(cfg, logger)
		assert.Error(t, err)
		assert.Nil(t, f)
	})
}

func TestPatternFilterApply(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name     string
		cfg      config.FilterConfig
		entry    core.LogEntry
		expected bool
	}{
		// Include OR logic
		{
			name:     "IncludeOR_MatchOne",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicOr, Patterns: []string{"apple", "banana"}},
			entry:    core.LogEntry{Message: "this is an apple"},
			expected: true,
		},
		{
			name:     "IncludeOR_NoMatch",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicOr, Patterns: []string{"apple", "banana"}},
			entry:    core.LogEntry{Message: "this is a pear"},
			expected: false,
		},
		// Include AND logic
		{
			name:     "IncludeAND_MatchAll",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicAnd, Patterns: []string{"apple", "doctor"}},
			entry:    core.LogEntry{Message: "an apple keeps the doctor away"},
			expected: true,
		},
		{
			name:     "IncludeAND_MatchOne",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicAnd, Patterns: []string{"apple", "doctor"}},
			entry:    core.LogEntry{Message: "this is an apple"},
			expected: false,
		},
		// Exclude OR logic
		{
			name:     "ExcludeOR_MatchOne",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Logic: config.FilterLogicOr, Patterns: []string{"error", "fatal"}},
			entry:    core.LogEntry{Message: "this is an error"},
			expected: false,
		},
		{
			name:     "ExcludeOR_NoMatch",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Logic: config.FilterLogicOr, Patterns: []string{"error", "fatal"}},
			entry:    core.LogEntry{Message: "this is a warning"},
			expected: true,
		},
		// Exclude AND logic
		{
			name:     "ExcludeAND_MatchAll",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Logic: config.FilterLogicAnd, Patterns: []string{"critical", "database"}},
			entry:    core.LogEntry{Message: "critical error in database"},
			expected: false,
		},
		{
			name:     "ExcludeAND_MatchOne",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Logic: config.FilterLogicAnd, Patterns: []string{"critical", "database"}},
			entry:    core.LogEntry{Message: "critical error in app"},
			expected: true,
		},
		// Edge cases
		{
			name:     "NoPatterns",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{}},
			entry:    core.LogEntry{Message: "any message"},
			expected: true,
		},
		{
			name:     "EmptyEntry_NoPatterns",
			cfg:      config.FilterConfig{Patterns: []string{}},
			entry:    core.LogEntry{},
			expected: true,
		},
		{
			name:     "EmptyEntry_DoesNotMatchSpace",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{" "}},
			entry:    core.LogEntry{Level: "", Source: "", Message: ""},
			expected: false,
		},
		{
			name:     "MatchOnLevel",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{"ERROR"}},
			entry:    core.LogEntry{Level: "ERROR", Message: "A message"},
			expected: true,
		},
		{
			name:     "MatchOnSource",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{"database"}},
			entry:    core.LogEntry{Source: "database", Message: "A message"},
			expected: true,
		},
		{
			name:     "MatchOnCombinedFields",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{"^app ERROR"}},
			entry:    core.LogEntry{Source: "app", Level: "ERROR", Message: "A message"},
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := New(tc.cfg, logger)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, f.Apply(tc.entry))
		})
	}
}

func TestLevelFilterApply(t *testing.T) {
	logger := newTestLogger()

	f, err := New(config.FilterConfig{
		Type:   config.FilterTypeLevels,
		Levels: []string{"debug", "warning"},
	}, logger)
	assert.NoError(t, err)

	testCases := []struct {
		name     string
		level    string
		expected bool
	}{
		{"BlockedExact", "DEBUG", false},
		{"BlockedLowercase", "debug", false},
		{"BlockedAlias", "WARN", false},
		{"PassOther", "ERROR", true},
		{"PassEmptyLevel", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entry := core.LogEntry{Level: tc.level, Message: "a message"}
			assert.Equal(t, tc.expected, f.Apply(entry))
		})
	}
}
