// Package config loads server configuration from an optional YAML file, a
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQL  = "sql"
	BackendBolt = "bolt"

	devJWTSecret = "ya-note-dev-secret-change-in-prod"
)

// Config holds all application configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	// Storage
	StoreBackend string `yaml:"store_backend"` // "sql" or "bolt"
	DBDriver     string `yaml:"db_driver"`     // sqlite3, postgres or mysql
	DBConn       string `yaml:"db_conn"`
	BoltPath     string `yaml:"bolt_path"`

	// Auth
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`

	// Login attempts per second and burst, per client address
	LoginRate  float64 `yaml:"login_rate"`
	LoginBurst int     `yaml:"login_burst"`

	LogLevel string `yaml:"log_level"`
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Default returns the development configuration.
func Default() *Config {
	return &Config{
		ListenAddr:   ":8080",
		StoreBackend: BackendSQL,
		DBDriver:     "sqlite3",
		DBConn:       "./ya-note.db",
		BoltPath:     "./ya-note.bolt",
		JWTSecret:    devJWTSecret,
		TokenTTL:     7 * 24 * time.Hour,
		LoginRate:    1,
		LoginBurst:   5,
		LogLevel:     "info",
	}
}

// Load builds the configuration. path names an optional YAML file; an
// empty path falls back to CONFIG_FILE. A .env file in the working directory
// fills every variable that is unset or empty.
func Load(path string) (*Config, error) {
	if err := loadDotenv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	var problems []string
	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.StoreBackend = getEnvOrDefault("STORE_BACKEND", cfg.StoreBackend)
	cfg.DBDriver = getEnvOrDefault("DB_DRIVER", cfg.DBDriver)
	cfg.DBConn = getEnvOrDefault("DB_CONN", cfg.DBConn)
	cfg.BoltPath = getEnvOrDefault("BOLT_PATH", cfg.BoltPath)
	cfg.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("TOKEN_TTL: %v", err))
		} else {
			cfg.TokenTTL = d
		}
	}
	if v := os.Getenv("SECURE_COOKIE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("SECURE_COOKIE: %v", err))
		} else {
			cfg.SecureCookie = b
		}
	}
	if v := os.Getenv("LOGIN_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("LOGIN_RATE: %v", err))
		} else {
			cfg.LoginRate = f
		}
	}
	if v := os.Getenv("LOGIN_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("LOGIN_BURST: %v", err))
		} else {
			cfg.LoginBurst = n
		}
	}

	problems = append(problems, cfg.validate()...)
	if len(problems) > 0 {
		return nil, &ValidationError{Errors: problems}
	}
	return cfg, nil
}

func (c *Config) validate() []string {
	var problems []string
	switch c.StoreBackend {
	case BackendSQL:
		switch c.DBDriver {
		case "sqlite3", "postgres", "mysql":
		default:
			problems = append(problems, fmt.Sprintf("DB_DRIVER must be sqlite3, postgres or mysql, got %q", c.DBDriver))
		}
		if c.DBConn == "" {
			problems = append(problems, "DB_CONN is required for the sql backend")
		}
	case BackendBolt:
		if c.BoltPath == "" {
			problems = append(problems, "BOLT_PATH is required for the bolt backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("STORE_BACKEND must be %q or %q, got %q", BackendSQL, BackendBolt, c.StoreBackend))
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		problems = append(problems, "LOGIN_RATE and LOGIN_BURST must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

// UsesDevSecret reports whether tokens are signed with the built-in secret.
func (c *Config) UsesDevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// loadDotenv sets the variables of a .env file whose environment value is
// empty. godotenv.Load skips any key that exists, even exported as "".
func loadDotenv(path string) error {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	for k, v := range vars {
		if os.Getenv(k) != "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
