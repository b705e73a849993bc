package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL    string
	Port           int
	BearerToken    string
	DefaultLimit   int
	RequestTimeout time.Duration
	Location       *time.Location
	LogLevel       string
	LogFormat      string
	MQTT           MQTTConfig
}

// MQTTConfig configures save notifications. An empty BrokerURL disables MQTT.
type MQTTConfig struct {
	BrokerURL   string
	TopicPrefix string
	Username    string
	Password    string
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.BrokerURL != ""
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file
	return FromEnv()
}

// FromEnv reads configuration from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:           8080,
		DefaultLimit:   50,
		RequestTimeout: 15 * time.Second,
		Location:       time.Local,
		LogLevel:       "info",
		LogFormat:      "json",
		MQTT:           MQTTConfig{TopicPrefix: "perftest"},
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if limitStr := os.Getenv("API_DEFAULT_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			cfg.DefaultLimit = limit
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_LIMIT: %s", limitStr)
		}
	}

	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %s", v)
		}
		cfg.RequestTimeout = d
	}

	if tz := strings.TrimSpace(os.Getenv("APP_TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			return cfg, fmt.Errorf("invalid LOG_LEVEL: %s", level)
		}
	}

	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		switch strings.ToLower(format) {
		case "json", "console":
			cfg.LogFormat = strings.ToLower(format)
		default:
			return cfg, fmt.Errorf("invalid LOG_FORMAT: %s", format)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	cfg.MQTT.BrokerURL = strings.TrimSpace(os.Getenv("MQTT_BROKER_URL"))
	if prefix := strings.Trim(strings.TrimSpace(os.Getenv("MQTT_TOPIC_PREFIX")), "/"); prefix != "" {
		cfg.MQTT.TopicPrefix = prefix
	}
	cfg.MQTT.Username = os.Getenv("MQTT_USERNAME")
	cfg.MQTT.Password = os.Getenv("MQTT_PASSWORD")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
