package config

import "fmt"

type FilterType string

const (
	FilterTypeInclude FilterType = "include"
	FilterTypeExclude FilterType = "exclude"
	FilterTypeLevels  FilterType = "levels"
)

type FilterLogic string

const (
	FilterLogicOr  FilterLogic = "or"
	FilterLogicAnd FilterLogic = "and"
)

// FilterConfig describes one filter stage.
// "include"/"exclude" match regex patterns against the message,
// "levels" drops entries whose severity is listed in Levels.
type FilterConfig struct {
	Type     FilterType  `toml:"type"`
	Logic    FilterLogic `toml:"logic"`
	Patterns []string    `toml:"patterns"`
	Levels   []string    `toml:"levels"`
}

func (f *FilterConfig) validate() error {
	switch f.Type {
	case "", FilterTypeInclude, FilterTypeExclude:
		if len(f.Patterns) == 0 {
			return fmt.Errorf("pattern filter requires at least one pattern")
		}
	case FilterTypeLevels:
		if len(f.Levels) == 0 {
			return fmt.Errorf("level filter requires at least one level")
		}
	default:
		return fmt.Errorf("unknown filter type '%s'", f.Type)
	}

	switch f.Logic {
	case "", FilterLogicOr, FilterLogicAnd:
	default:
		return fmt.Errorf("unknown filter logic '%s'", f.Logic)
	}
	return nil
}
