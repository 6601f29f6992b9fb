package config

import (
	"fmt"
)

// PipelineConfig represents the relay's data processing pipeline
type PipelineConfig struct {
	// Pipeline identifier (used in logs and stats)
	Name string `toml:"name"`

	// Data sources for this pipeline
	Sources []SourceConfig `toml:"sources"`

	// Filter configuration
	Filters []FilterConfig `toml:"filters"`

	// Formatter shared by all sinks
	Format FormatConfig `toml:"format"`

	// Output sinks for this pipeline
	Sinks []SinkConfig `toml:"sinks"`
}

// SourceConfig represents an input data source
type SourceConfig struct {
	// Source type: "stdin" or "tcp"
	Type string `toml:"type"`

	Stdin *StdinSourceOptions `toml:"stdin"`
	TCP   *TCPSourceOptions   `toml:"tcp"`
}

type StdinSourceOptions struct {
	BufferSize int64 `toml:"buffer_size"`
}

type TCPSourceOptions struct {
	Host       string `toml:"host"`
	Port       int64  `toml:"port"`
	BufferSize int64  `toml:"buffer_size"`

	// Per-connection ingest limit, lines per second (0 = unlimited)
	LinesPerSecond float64 `toml:"lines_per_second"`
	Burst          int64   `toml:"burst"`
}

// SinkConfig represents an output destination
type SinkConfig struct {
	// Sink type: "console", "file" or "discord"
	Type string `toml:"type"`

	Console *ConsoleSinkOptions `toml:"console"`
	File    *FileSinkOptions    `toml:"file"`
	Discord *DiscordSinkOptions `toml:"discord"`
}

type ConsoleSinkOptions struct {
	// "stdout", "stderr" or "split" (warn and above to stderr)
	Target     string `toml:"target"`
	BufferSize int64  `toml:"buffer_size"`
}

func (p *PipelineConfig) validate() error {
	if p.Name == "" {
		return fmt.Errorf("pipeline: missing name")
	}
	if len(p.Sources) == 0 {
		return fmt.Errorf("pipeline '%s': no sources configured", p.Name)
	}
	if len(p.Sinks) == 0 {
		return fmt.Errorf("pipeline '%s': no sinks configured", p.Name)
	}

	for i, src := range p.Sources {
		if err := src.validate(); err != nil {
			return fmt.Errorf("pipeline '%s' source[%d]: %w", p.Name, i, err)
		}
	}
	for i, f := range p.Filters {
		if err := f.validate(); err != nil {
			return fmt.Errorf("pipeline '%s' filter[%d]: %w", p.Name, i, err)
		}
	}
	if err := p.Format.validate(); err != nil {
		return fmt.Errorf("pipeline '%s' format: %w", p.Name, err)
	}
	for i, s := range p.Sinks {
		if err := s.validate(); err != nil {
			return fmt.Errorf("pipeline '%s' sink[%d]: %w", p.Name, i, err)
		}
	}
	return nil
}

func (s *SourceConfig) validate() error {
	switch s.Type {
	case "stdin":
		// No required options
	case "tcp":
		if s.TCP == nil {
			return fmt.Errorf("tcp source requires a [tcp] options table")
		}
		if s.TCP.Port < 1 || s.TCP.Port > 65535 {
			return fmt.Errorf("invalid or missing TCP port: %d", s.TCP.Port)
		}
		if s.TCP.LinesPerSecond < 0 {
			return fmt.Errorf("lines_per_second must not be negative: %f", s.TCP.LinesPerSecond)
		}
	case "":
		return fmt.Errorf("missing type")
	default:
		return fmt.Errorf("unknown source type '%s'", s.Type)
	}
	return nil
}

func (s *SinkConfig) validate() error {
	switch s.Type {
	case "console":
		if s.Console != nil {
			switch s.Console.Target {
			case "", "stdout", "stderr", "split":
			default:
				return fmt.Errorf("invalid console target: %s", s.Console.Target)
			}
		}
	case "file":
		if s.File == nil {
			return fmt.Errorf("file sink requires a [file] options table")
		}
		return s.File.validate()
	case "discord":
		if s.Discord == nil {
			return fmt.Errorf("discord sink requires a [discord] options table")
		}
		return s.Discord.validate()
	case "":
		return fmt.Errorf("missing type")
	default:
		return fmt.Errorf("unknown sink type '%s'", s.Type)
	}
	return nil
}
