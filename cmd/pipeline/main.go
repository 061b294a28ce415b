// Package main provides the unified pipeline command that extracts,
// normalizes, merges, validates, enriches and publishes review data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reviewetl/internal/config"
	"reviewetl/internal/logger"
	"reviewetl/internal/pipeline"
)

func main() {
	// 1. Define Command-Line Flags
	// ---------------------------
	opts := parseFlags()

	// Load credentials from .env before the config resolves ${VAR}
	// placeholders. A missing file is fine; real deployments use the
	// process environment.
	if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", opts.envFile, err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Pipeline.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("🚀 Starting review pipeline", "apps", len(cfg.EnabledApps()), "data_dir", cfg.Pipeline.DataDir)

	startTime := time.Now()

	result, err := pipeline.New(cfg, log, os.Stdout).Run(ctx)
	if err != nil {
		log.Error("❌ Pipeline failed", "error", err)
		os.Exit(1)
	}

	log.Info("✅ Pipeline complete",
		"rows", len(result.Records),
		"combined_csv", result.CombinedCSV,
		"elapsed", time.Since(startTime).Round(time.Millisecond).String())
}

type options struct {
	configFile string
	envFile    string
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.configFile, "config", "config/config.yaml", "Path to the pipeline config file")
	flag.StringVar(&opts.envFile, "env", ".env", "Path to the credentials .env file")
	flag.Parse()

	return opts
}
