// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config holds the process configuration
type Config struct {
	Host     string `env:"HOST" envDefault:"0.0.0.0"`
	Port     string `env:"PORT" envDefault:"8080"`
	DBPath   string `env:"DB_PATH" envDefault:"tododb.sqlite"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is "text" or "json"
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	APITokensFile string `env:"API_TOKENS_FILE" envDefault:"/etc/todostore/api-tokens"`
	AuthDisabled  bool   `env:"AUTH_DISABLED" envDefault:"false"`

	ToastDurationMS int    `env:"TOAST_DURATION_MS" envDefault:"3000"`
	ToastPlacement  string `env:"TOAST_PLACEMENT" envDefault:"bottom-end"`

	Backup BackupConfig
}

// BackupConfig configures snapshot uploads to S3-compatible storage
type BackupConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"BACKUP_BUCKET"`
	Prefix    string `env:"BACKUP_PREFIX" envDefault:"tododb"`

	RetryAttempts  int    `env:"BACKUP_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBackoffMS string `env:"BACKUP_RETRY_BACKOFF_MS" envDefault:"200,1000"`
}

// Enabled reports whether enough is configured to upload backups
func (b BackupConfig) Enabled() bool {
	return b.Endpoint != "" && b.Bucket != ""
}

// RetryDelays parses the comma separated millisecond backoff list. Entries
// that do not parse are skipped; an empty result falls back to one second.
func (b BackupConfig) RetryDelays() []time.Duration {
	var delays []time.Duration
	for _, part := range strings.Split(b.RetryBackoffMS, ",") {
		ms, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || ms < 0 {
			continue
		}
		delays = append(delays, time.Duration(ms)*time.Millisecond)
	}
	if len(delays) == 0 {
		delays = []time.Duration{time.Second}
	}
	return delays
}

// Load parses the environment into a Config
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("DB_PATH must not be empty")
	}
	return cfg, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// ConfigureLogging applies LogLevel and LogFormat to the standard logrus logger
func (c *Config) ConfigureLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL '%s': %w", c.LogLevel, err)
	}
	logrus.SetLevel(level)

	switch c.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT '%s': must be text or json", c.LogFormat)
	}
	return nil
}
