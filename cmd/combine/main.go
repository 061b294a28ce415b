// Package main provides the combine command that merges previously
// extracted per-source tables into the published aggregate outputs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"reviewetl/internal/config"
	"reviewetl/internal/logger"
	"reviewetl/internal/pipeline"
)

func main() {
	configFile := flag.String("config", "config/config.yaml", "Path to the pipeline config file")
	envFile := flag.String("env", ".env", "Path to the credentials .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Pipeline.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, log, os.Stdout)

	tables, expected, err := p.LoadTables()
	if err != nil {
		log.Error("❌ No processed tables to combine", "error", err)
		os.Exit(1)
	}

	result, err := p.Combine(ctx, tables, expected)
	if err != nil {
		log.Error("❌ Combine failed", "error", err)
		os.Exit(1)
	}

	log.Info("✅ Combine complete", "rows", len(result.Records), "combined_csv", result.CombinedCSV)
}
