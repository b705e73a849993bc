package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultRequestTimeout = 30 * time.Second
)

// Config holds runtime configuration for the tag catalogue sync.
type Config struct {
	DatabaseURL    string
	CatalogURL     string
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	DryRun         bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	return FromEnv()
}

// FromEnv reads configuration from the process environment only. The log
// settings are filled in even when an error is returned.
func FromEnv() (Config, error) {
	cfg := Config{
		LogLevel:  strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFormat: strings.TrimSpace(os.Getenv("LOG_FORMAT")),
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.CatalogURL = strings.TrimSpace(os.Getenv("TAG_CATALOG_URL"))
	if cfg.CatalogURL == "" {
		return cfg, errors.New("TAG_CATALOG_URL is required")
	}

	cfg.RequestTimeout = defaultRequestTimeout
	if v := strings.TrimSpace(os.Getenv("TAGSYNC_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TAGSYNC_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	dryRun := strings.TrimSpace(os.Getenv("DRY_RUN"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	return cfg, nil
}
