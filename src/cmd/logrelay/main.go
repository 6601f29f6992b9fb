package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/service"
	"logrelay/src/internal/version"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	if err := parseFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Set config file environment if specified
	if *configFile != "" {
		os.Setenv("LOGRELAY_CONFIG_FILE", *configFile)
	}

	// Load configuration with CLI overrides
	cfg, err := config.LoadWithCLI(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	applyLogOverrides(cfg)

	if *promptToken {
		token, err := promptWebhookToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !applyWebhookToken(cfg, token) {
			fmt.Fprintln(os.Stderr, "Error: -prompt-token given but no discord sink is configured")
			os.Exit(1)
		}
	}

	if err := initializeLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer shutdownLogger()

	logger.Info("msg", "LogRelay starting",
		"version", version.String(),
		"config_file", *configFile,
		"log_output", cfg.Logging.Output,
		"pipeline", cfg.Pipeline.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	pipeline, err := service.NewPipeline(&cfg.Pipeline, logger)
	if err != nil {
		logger.Error("msg", "Failed to build pipeline", "error", err)
		shutdownLogger()
		os.Exit(1)
	}

	if err := pipeline.Start(ctx); err != nil {
		logger.Error("msg", "Failed to start pipeline", "error", err)
		shutdownLogger()
		os.Exit(1)
	}

	<-sigChan
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown...")

	// Shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		pipeline.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		os.Exit(1)
	}
}

// applyWebhookToken overrides the token of every configured discord
// sink. Returns false when the config has none.
func applyWebhookToken(cfg *config.Config, token string) bool {
	applied := false
	for i := range cfg.Pipeline.Sinks {
		if cfg.Pipeline.Sinks[i].Type == "discord" && cfg.Pipeline.Sinks[i].Discord != nil {
			cfg.Pipeline.Sinks[i].Discord.WebhookToken = token
			applied = true
		}
	}
	return applied
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
		}
	}
}
