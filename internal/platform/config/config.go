package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the gateway configuration. Values come from an optional YAML
// file and are overridden by environment variables.
type Config struct {
	Port          string        `yaml:"port"`
	DefaultVHost  string        `yaml:"default_vhost"`
	ArchiveDir    string        `yaml:"archive_dir"`
	Logging       Logging       `yaml:"logging"`
	RateLimit     RateLimit     `yaml:"rate_limit"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// Logging holds logger settings.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RateLimit holds the per-client API rate limit. Requests <= 0 disables it.
type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:         "8080",
		DefaultVHost: "default",
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimit{
			Requests: 120,
			Window:   time.Minute,
		},
		ShutdownGrace: 10 * time.Second,
	}
}

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files; with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// Resolve builds the effective configuration: defaults, then the YAML file
// named by CONFIG_FILE (if any), then environment variables.
func Resolve() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadFile decodes the YAML file at path over cfg. Keys absent from the file
// keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = GetEnv("PORT", cfg.Port)
	cfg.DefaultVHost = GetEnv("DEFAULT_VHOST", cfg.DefaultVHost)
	cfg.ArchiveDir = GetEnv("ARCHIVE_DIR", cfg.ArchiveDir)
	cfg.Logging.Level = GetEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = GetEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.RateLimit.Requests = GetEnvInt("RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = GetEnvDuration("RATE_LIMIT_WINDOW", cfg.RateLimit.Window)
	cfg.ShutdownGrace = GetEnvDuration("SHUTDOWN_GRACE", cfg.ShutdownGrace)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration parses the environment variable named by key with
// time.ParseDuration, returning fallback when unset or invalid.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}
