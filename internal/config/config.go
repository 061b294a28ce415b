// Package config provides configuration management for the review pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoApps                   = errors.New("at least one app is required")
	ErrNoEnabledApps            = errors.New("at least one app must be enabled")
	ErrAppMissingName           = errors.New("app name is required")
	ErrAppMissingPath           = errors.New("app path is required")
	ErrAppMissingSource         = errors.New("at least one of app_store_id, play_store_id or subreddit is required")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrMissingDataDir           = errors.New("pipeline.data_dir is required")
	ErrInvalidLookback          = errors.New("pipeline.lookback_days must be at least 1")
	ErrInvalidDropRatio         = errors.New("pipeline.drop_ratio_threshold must be in [0, 1]")
	ErrInvalidRate              = errors.New("pipeline.requests_per_second must be at least 1")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrMissingBucket            = errors.New("aws.bucket is required when backup is enabled")
	ErrMissingModelID           = errors.New("enrichment.model_id is required when enrichment is enabled")
	ErrEnvVarNotSet             = errors.New("referenced environment variable is not set")
)

// Config represents the complete pipeline configuration.
type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Apps       []AppConfig      `yaml:"apps"`
	Reddit     RedditConfig     `yaml:"reddit_api"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	AWS        AWSConfig        `yaml:"aws"`
}

// PipelineConfig contains settings shared by every stage.
type PipelineConfig struct {
	DataDir            string        `yaml:"data_dir"`
	LookbackDays       int           `yaml:"lookback_days"`
	DropRatioThreshold float64       `yaml:"drop_ratio_threshold"`
	RequestsPerSecond  int           `yaml:"requests_per_second"`
	Retry              RetryPolicy   `yaml:"retry"`
	Logging            LoggingConfig `yaml:"logging"`
}

// AppConfig describes one food-delivery app to collect reviews for.
type AppConfig struct {
	Name        string   `yaml:"name"`
	Path        string   `yaml:"path"`
	Aliases     []string `yaml:"aliases"`
	AppStoreID  string   `yaml:"app_store_id"`
	PlayStoreID string   `yaml:"play_store_id"`
	Subreddit   string   `yaml:"subreddit"`
	Enabled     bool     `yaml:"enabled"`
}

// RedditConfig holds Reddit API credentials. Values may reference
// environment variables with the ${VAR} syntax.
type RedditConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
}

// EnrichmentConfig controls the sentiment/emotion/topic classifiers.
type EnrichmentConfig struct {
	Enabled bool     `yaml:"enabled"`
	ModelID string   `yaml:"model_id"`
	Region  string   `yaml:"region"`
	Topics  []string `yaml:"topics"`
}

// AWSConfig controls the optional S3 backup of the data directory.
type AWSConfig struct {
	BackupEnabled bool   `yaml:"backup_enabled"`
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
}

// RetryPolicy defines retry behavior for extractor HTTP calls.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultTopics is used when enrichment.topics is not configured. The set
// matches the themes the downstream analysis groups reviews under.
var DefaultTopics = []string{
	"delivery", "food quality", "app experience", "pricing", "customer service",
}

// envRefPattern matches ${VAR} references in credential values.
var envRefPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// LoadConfig loads and validates configuration from a YAML file.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pipeline.LookbackDays == 0 {
		c.Pipeline.LookbackDays = 365
	}

	if c.Pipeline.DropRatioThreshold == 0 {
		c.Pipeline.DropRatioThreshold = 0.5
	}

	if c.Pipeline.RequestsPerSecond == 0 {
		c.Pipeline.RequestsPerSecond = 2
	}

	if c.Pipeline.Retry.MaxAttempts == 0 {
		c.Pipeline.Retry = RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
		}
	}

	if c.Pipeline.Logging.Level == "" {
		c.Pipeline.Logging.Level = "info"
	}

	if len(c.Enrichment.Topics) == 0 {
		c.Enrichment.Topics = DefaultTopics
	}
}

// expandEnv resolves ${VAR} references in credential fields so a run never
// starts with a literal "${REDDIT_CLIENT_ID}" as a credential. An unset
// variable resolves to empty when the feature that needs it is off (the
// Reddit extractor is simply skipped without credentials), and is a hard
// error when it is required, such as the bucket with backup enabled.
func (c *Config) expandEnv() error {
	fields := []struct {
		value    *string
		required bool
	}{
		{&c.Reddit.ClientID, false},
		{&c.Reddit.ClientSecret, false},
		{&c.Reddit.UserAgent, false},
		{&c.AWS.Bucket, c.AWS.BackupEnabled},
	}

	for _, f := range fields {
		m := envRefPattern.FindStringSubmatch(*f.value)
		if m == nil {
			continue
		}

		val, ok := os.LookupEnv(m[1])
		if !ok {
			if f.required {
				return fmt.Errorf("%w: %s", ErrEnvVarNotSet, m[1])
			}

			val = ""
		}

		*f.value = val
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Apps) == 0 {
		return ErrNoApps
	}

	enabledCount := 0

	for i, app := range c.Apps {
		if app.Name == "" {
			return fmt.Errorf("%w: apps[%d]", ErrAppMissingName, i)
		}

		if app.Path == "" {
			return fmt.Errorf("%w: apps[%d]", ErrAppMissingPath, i)
		}

		if app.AppStoreID == "" && app.PlayStoreID == "" && app.Subreddit == "" {
			return fmt.Errorf("%w: apps[%d]", ErrAppMissingSource, i)
		}

		if app.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledApps
	}

	if c.Pipeline.DataDir == "" {
		return ErrMissingDataDir
	}

	if c.Pipeline.LookbackDays < 1 {
		return ErrInvalidLookback
	}

	if c.Pipeline.DropRatioThreshold < 0 || c.Pipeline.DropRatioThreshold > 1 {
		return ErrInvalidDropRatio
	}

	if c.Pipeline.RequestsPerSecond < 1 {
		return ErrInvalidRate
	}

	if c.Pipeline.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Pipeline.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Pipeline.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Pipeline.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Pipeline.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.AWS.BackupEnabled && c.AWS.Bucket == "" {
		return ErrMissingBucket
	}

	if c.Enrichment.Enabled && c.Enrichment.ModelID == "" {
		return ErrMissingModelID
	}

	return nil
}

// EnabledApps returns only enabled apps.
func (c *Config) EnabledApps() []AppConfig {
	var enabled []AppConfig

	for _, app := range c.Apps {
		if app.Enabled {
			enabled = append(enabled, app)
		}
	}

	return enabled
}

// LookbackCutoff returns the oldest timestamp extraction keeps, relative to now.
func (c *Config) LookbackCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.Pipeline.LookbackDays)
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the HTTP client timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Apps: %d, MaxAttempts: %d, DataDir: %s}",
		len(c.Apps),
		c.Pipeline.Retry.MaxAttempts,
		c.Pipeline.DataDir,
	)
}
