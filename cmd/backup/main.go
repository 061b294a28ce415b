// Package main provides the backup command that mirrors the local data
// directory to the configured S3 bucket.
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

	if cfg.AWS.Bucket == "" {
		log.Error("❌ No backup bucket configured (aws.bucket)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploaded, err := pipeline.New(cfg, log, os.Stdout).Backup(ctx)
	if err != nil {
		log.Error("❌ Backup failed", "error", err)
		os.Exit(1)
	}

	log.Info("✅ Backup complete", "files", uploaded, "bucket", cfg.AWS.Bucket)
}
