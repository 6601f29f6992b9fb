package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"logrelay/src/internal/config"

	"golang.org/x/term"
)

// Command-line flags
var (
	// General flags
	configFile  = flag.String("config", "", "Config file path")
	showVersion = flag.Bool("version", false, "Show version information")
	promptToken = flag.Bool("prompt-token", false, "Prompt for the webhook token instead of reading it from config")

	// Logging flags
	logOutput  = flag.String("log-output", "", "Log output: file, stdout, stderr, both, none (overrides config)")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	logDir     = flag.String("log-dir", "", "Log directory (when using file output)")
	logConsole = flag.String("log-console", "", "Console target: stdout, stderr, split (overrides config)")
)

func init() {
	flag.Usage = customUsage
}

func customUsage() {
	fmt.Fprintf(os.Stderr, "LogRelay - Log Rotation and Webhook Dispatch Service\n\n")
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Options:\n")

	fmt.Fprintf(os.Stderr, "\nGeneral:\n")
	fmt.Fprintf(os.Stderr, "  -config string\n\tConfig file path\n")
	fmt.Fprintf(os.Stderr, "  -version\n\tShow version information\n")
	fmt.Fprintf(os.Stderr, "  -prompt-token\n\tPrompt for the webhook token instead of reading it from config\n")

	fmt.Fprintf(os.Stderr, "\nLogging:\n")
	fmt.Fprintf(os.Stderr, "  -log-output string\n\tLog output: file, stdout, stderr, both, none (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  -log-level string\n\tLog level: debug, info, warn, error (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  -log-dir string\n\tLog directory (when using file output)\n")
	fmt.Fprintf(os.Stderr, "  -log-console string\n\tConsole target: stdout, stderr, split (overrides config)\n")

	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  # Relay stdin to the sinks of the default config\n")
	fmt.Fprintf(os.Stderr, "  tail -f /var/log/app.log | %s\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Run with a custom config and override log level\n")
	fmt.Fprintf(os.Stderr, "  %s -config /etc/logrelay.toml -log-level warn\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Keep the webhook token out of the config file\n")
	fmt.Fprintf(os.Stderr, "  %s -config /etc/logrelay.toml -prompt-token\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "Environment Variables:\n")
	fmt.Fprintf(os.Stderr, "  LOGRELAY_CONFIG_FILE  Config file path\n")
	fmt.Fprintf(os.Stderr, "  LOGRELAY_CONFIG_DIR   Config directory\n")
}

func parseFlags() error {
	flag.Parse()

	if *logOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true,
			"both": true, "none": true,
		}
		if !validOutputs[*logOutput] {
			return fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, both, none)", *logOutput)
		}
	}

	if *logLevel != "" {
		if _, err := parseLogLevel(*logLevel); err != nil {
			return fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", *logLevel)
		}
	}

	if *logConsole != "" {
		validTargets := map[string]bool{
			"stdout": true, "stderr": true, "split": true,
		}
		if !validTargets[*logConsole] {
			return fmt.Errorf("invalid log-console: %s (valid: stdout, stderr, split)", *logConsole)
		}
	}

	return nil
}

// applyLogOverrides folds validated logging flags into the loaded
// configuration.
func applyLogOverrides(cfg *config.Config) {
	if cfg.Logging == nil {
		cfg.Logging = config.DefaultLogConfig()
	}
	if *logOutput != "" {
		cfg.Logging.Output = *logOutput
	}
	if *logLevel != "" {
		cfg.Logging.Level = strings.ToLower(*logLevel)
	}
	if *logDir != "" {
		if cfg.Logging.File == nil {
			cfg.Logging.File = config.DefaultLogConfig().File
		}
		cfg.Logging.File.Directory = *logDir
	}
	if *logConsole != "" {
		if cfg.Logging.Console == nil {
			cfg.Logging.Console = config.DefaultLogConfig().Console
		}
		cfg.Logging.Console.Target = *logConsole
	}
}

func promptWebhookToken() (string, error) {
	fmt.Fprint(os.Stderr, "Webhook token: ")
	token, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading webhook token: %w", err)
	}
	return strings.TrimSpace(string(token)), nil
}
