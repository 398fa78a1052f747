// Package config loads planner settings from an optional TOML file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is read when PLANNER_CONFIG is unset and the file exists.
const DefaultFile = "planner.toml"

// Config holds all planner settings.
type Config struct {
	HTTP    HTTPConfig    `toml:"http"`
	Storage StorageConfig `toml:"storage"`
	Images  ImagesConfig  `toml:"images"`
	Log     LogConfig     `toml:"log"`

	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// HTTPConfig configures the local API server.
type HTTPConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for the listener.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects the record backend and the JetStream data directory.
type StorageConfig struct {
	Path        string `toml:"path"`
	Backend     string `toml:"backend"`
	SQLitePath  string `toml:"sqlite_path"`
	SQLiteDebug bool   `toml:"sqlite_debug"`
	RedisAddr   string `toml:"redis_addr"`
	RedisPrefix string `toml:"redis_prefix"`
}

// ImagesConfig limits the binary store.
type ImagesConfig struct {
	MaxSize   int64 `toml:"max_size"`
	MaxBucket int64 `toml:"max_bucket"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Host: "127.0.0.1",
			Port: 3000,
		},
		Storage: StorageConfig{
			Path:        "/tmp/planner",
			Backend:     "jetstream",
			SQLitePath:  "planner.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "planner:",
		},
		Images: ImagesConfig{
			MaxSize:   10 * 1024 * 1024,
			MaxBucket: 1024 * 1024 * 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		ShutdownTimeout: Duration{30 * time.Second},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (or
// PLANNER_CONFIG, or DefaultFile if present), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("PLANNER_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultFile
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail at start-up.
func (c Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	switch c.Storage.Backend {
	case "jetstream", "sqlite", "redis":
	default:
		return fmt.Errorf("invalid storage backend: %q", c.Storage.Backend)
	}
	if c.Images.MaxSize <= 0 {
		return fmt.Errorf("invalid max image size: %d", c.Images.MaxSize)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Host = getEnv("HTTP_HOST", cfg.HTTP.Host)
	cfg.HTTP.Port = getEnvInt("HTTP_PORT", cfg.HTTP.Port)
	cfg.Storage.Path = getEnv("STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.Backend = strings.ToLower(getEnv("KV_BACKEND", cfg.Storage.Backend))
	cfg.Storage.SQLitePath = getEnv("SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.SQLiteDebug = getEnv("DB_DEBUG", strconv.FormatBool(cfg.Storage.SQLiteDebug)) == "true"
	cfg.Storage.RedisAddr = getEnv("REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.RedisPrefix = getEnv("REDIS_PREFIX", cfg.Storage.RedisPrefix)
	cfg.Images.MaxSize = getEnvInt64("MAX_IMAGE_SIZE", cfg.Images.MaxSize)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvInt64 returns environment variable as int64 or default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int64 value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}
