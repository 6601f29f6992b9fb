package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

type Config struct {
	Logging  *LogConfig     `toml:"logging"`
	Pipeline PipelineConfig `toml:"pipeline"`
}

func defaults() *Config {
	return &Config{
		Logging: DefaultLogConfig(),
		Pipeline: PipelineConfig{
			Name: "default",
			Sources: []SourceConfig{
				{Type: "stdin", Stdin: &StdinSourceOptions{BufferSize: 1000}},
			},
			Format: FormatConfig{Name: "text"},
			Sinks: []SinkConfig{
				{Type: "console", Console: &ConsoleSinkOptions{Target: "stdout", BufferSize: 1000}},
			},
		},
	}
}

// LoadWithCLI loads configuration from defaults, file, environment and CLI
// arguments, in ascending priority order.
func LoadWithCLI(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("LOGRELAY_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig, ""); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, finalConfig.Validate()
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "LOGRELAY_" + env
	return env
}

func GetConfigPath() string {
	if configFile := os.Getenv("LOGRELAY_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("LOGRELAY_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("LOGRELAY_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "logrelay.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "logrelay.toml")
	}

	return "logrelay.toml"
}

func (c *Config) Validate() error {
	if c.Logging != nil {
		if err := validateLogConfig(c.Logging); err != nil {
			return err
		}
	}
	return c.Pipeline.validate()
}
