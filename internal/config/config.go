// Package config provides configuration management for Switchboard.
// It loads settings from environment variables with the SWITCHBOARD_ prefix
// and provides sensible defaults for all configuration options.
//
// A YAML file may be layered on top with LoadConfigFile; environment
// variables that are set still win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage engines accepted in StorageConfig.Engine.
const (
	EngineMemory   = "memory"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineBadger   = "badger"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all configuration settings for the Switchboard client.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Transport TransportConfig `yaml:"transport"`
	Debug     DebugConfig     `yaml:"debug"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig identifies the configuration server and this install.
type ServerConfig struct {
	URL          string `yaml:"url"`          // Configuration endpoint
	UUID         string `yaml:"uuid"`         // Install UUID (default: generated and kept in the data path)
	TrackingID   string `yaml:"tracking_id"`  // Optional tracking identifier
	AppID        string `yaml:"app_id"`       // Reported as appId
	Version      string `yaml:"version"`      // Reported as version
	Build        string `yaml:"build"`        // Reported as build
	Manufacturer string `yaml:"manufacturer"` // Reported as manufacturer
}

// StorageConfig contains flag store and cache configuration.
type StorageConfig struct {
	Engine   string `yaml:"engine"`    // memory, sqlite, postgres, badger (default: sqlite)
	DataPath string `yaml:"data_path"` // Path to data directory (default: ./data)
	DSN      string `yaml:"dsn"`       // Postgres connection string
}

// TransportConfig tunes the download client and the push stream.
type TransportConfig struct {
	Timeout            time.Duration `yaml:"timeout"`              // Per-request timeout (default: 10s)
	RequestsPerSecond  float64       `yaml:"requests_per_second"`  // Download rate limit (default: 1)
	Burst              int           `yaml:"burst"`                // Download burst (default: 3)
	BreakerMaxFailures int           `yaml:"breaker_max_failures"` // Failures before the breaker opens (default: 3)
	BreakerTimeout     time.Duration `yaml:"breaker_timeout"`      // Open-state duration (default: 30s)
	StreamURL          string        `yaml:"stream_url"`           // Optional websocket push endpoint
}

// DebugConfig controls local overrides.
type DebugConfig struct {
	Enabled      bool `yaml:"enabled"`       // Start in debugging mode (default: false)
	PayloadWatch bool `yaml:"payload_watch"` // Apply payload files dropped in the data path (default: true)
}

// MetricsConfig controls the Prometheus endpoint of the watch command.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Serve /metrics (default: false)
	Addr    string `yaml:"addr"`    // Listen address (default: 127.0.0.1:9363)
}

// LoadConfig loads configuration from environment variables with sensible defaults.
// All environment variables use the SWITCHBOARD_ prefix.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile loads the YAML file at path over the defaults and then
// applies environment overrides. An empty path behaves like LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	if path == "" {
		return LoadConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case EngineMemory, EngineSQLite, EngineBadger:
	case EnginePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: postgres engine requires a DSN", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage engine %q", ErrInvalidConfig, c.Storage.Engine)
	}
	if c.Storage.Engine != EngineMemory && c.Storage.DataPath == "" {
		return fmt.Errorf("%w: data path is required", ErrInvalidConfig)
	}
	if c.Transport.Timeout <= 0 {
		return fmt.Errorf("%w: transport timeout must be positive", ErrInvalidConfig)
	}
	if c.Transport.RequestsPerSecond <= 0 || c.Transport.Burst <= 0 {
		return fmt.Errorf("%w: rate limit must be positive", ErrInvalidConfig)
	}
	if c.Transport.BreakerMaxFailures <= 0 {
		return fmt.Errorf("%w: breaker_max_failures must be positive", ErrInvalidConfig)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics address is required", ErrInvalidConfig)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Manufacturer: "unknown",
		},
		Storage: StorageConfig{
			Engine:   EngineSQLite,
			DataPath: "./data",
		},
		Transport: TransportConfig{
			Timeout:            10 * time.Second,
			RequestsPerSecond:  1,
			Burst:              3,
			BreakerMaxFailures: 3,
			BreakerTimeout:     30 * time.Second,
		},
		Debug: DebugConfig{
			PayloadWatch: true,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9363",
		},
	}
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// applyEnv overrides cfg with every SWITCHBOARD_ variable that is set.
func applyEnv(cfg *Config) {
	cfg.Server.URL = getEnv("SWITCHBOARD_SERVER_URL", cfg.Server.URL)
	cfg.Server.UUID = getEnv("SWITCHBOARD_UUID", cfg.Server.UUID)
	cfg.Server.TrackingID = getEnv("SWITCHBOARD_TRACKING_ID", cfg.Server.TrackingID)
	cfg.Server.AppID = getEnv("SWITCHBOARD_APP_ID", cfg.Server.AppID)
	cfg.Server.Version = getEnv("SWITCHBOARD_APP_VERSION", cfg.Server.Version)
	cfg.Server.Build = getEnv("SWITCHBOARD_APP_BUILD", cfg.Server.Build)
	cfg.Server.Manufacturer = getEnv("SWITCHBOARD_MANUFACTURER", cfg.Server.Manufacturer)

	cfg.Storage.Engine = getEnv("SWITCHBOARD_STORAGE_ENGINE", cfg.Storage.Engine)
	cfg.Storage.DataPath = getEnv("SWITCHBOARD_DATA_PATH", cfg.Storage.DataPath)
	cfg.Storage.DSN = getEnv("SWITCHBOARD_DSN", cfg.Storage.DSN)

	cfg.Transport.Timeout = getEnvDuration("SWITCHBOARD_TIMEOUT", cfg.Transport.Timeout)
	cfg.Transport.RequestsPerSecond = getEnvFloat("SWITCHBOARD_REQUESTS_PER_SECOND", cfg.Transport.RequestsPerSecond)
	cfg.Transport.Burst = getEnvInt("SWITCHBOARD_BURST", cfg.Transport.Burst)
	cfg.Transport.BreakerMaxFailures = getEnvInt("SWITCHBOARD_BREAKER_MAX_FAILURES", cfg.Transport.BreakerMaxFailures)
	cfg.Transport.BreakerTimeout = getEnvDuration("SWITCHBOARD_BREAKER_TIMEOUT", cfg.Transport.BreakerTimeout)
	cfg.Transport.StreamURL = getEnv("SWITCHBOARD_STREAM_URL", cfg.Transport.StreamURL)

	cfg.Debug.Enabled = getEnvBool("SWITCHBOARD_DEBUG", cfg.Debug.Enabled)
	cfg.Debug.PayloadWatch = getEnvBool("SWITCHBOARD_PAYLOAD_WATCH", cfg.Debug.PayloadWatch)

	cfg.Metrics.Enabled = getEnvBool("SWITCHBOARD_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = getEnv("SWITCHBOARD_METRICS_ADDR", cfg.Metrics.Addr)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings such as "5s" or "1m30s".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
// If the environment variable exists but cannot be parsed as a boolean,
// it returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
