// Package config loads server configuration from command-line flags,
// environment variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultClientID is the OAuth client the API accepts ID tokens for when
// CLIENT_ID is not set.
const DefaultClientID = "482667228483-chgqkssr58gbarip8g9df2bg8b0601jh.apps.googleusercontent.com"

// Store drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Auth      AuthConfig
	Store     StoreConfig
	Relations RelationsConfig
	HTTP      HTTPConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// IsProduction reports whether the server runs in production.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string
	BaseURL      string // prefix for self links, no trailing slash
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AuthConfig holds identity token verification settings.
type AuthConfig struct {
	ClientID string // expected audience of Google ID tokens
}

// StoreConfig selects and locates the datastore.
type StoreConfig struct {
	Driver   string
	DataPath string
}

// RelationsConfig tunes the background relationship workers.
type RelationsConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
}

// HTTPConfig holds cross-cutting HTTP middleware settings.
type HTTPConfig struct {
	CORSAllowedOrigins []string
	RateLimitRPS       float64 // 0 disables rate limiting
	RateLimitBurst     int
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("playlist-server", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	port := fs.String("port", "", "Server port (default: 8080)")
	baseURL := fs.String("base-url", "", "Base URL used in self links")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	clientID := fs.String("client-id", "", "OAuth client id expected as ID token audience")
	dataPath := fs.String("data-path", "", "Directory for the datastore")
	driver := fs.String("store-driver", "", "Datastore driver (badger, sqlite)")
	workers := fs.String("relation-workers", "", "Background relationship workers (default: 4)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env file is fine; real environment variables always win.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:    getConfigValue(*port, "SERVER_PORT", getConfigValue("", "PORT", "8080")),
			BaseURL: getConfigValue(*baseURL, "BASE_URL", ""),
		},
		Auth: AuthConfig{
			ClientID: getConfigValue(*clientID, "CLIENT_ID", DefaultClientID),
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(getConfigValue(*driver, "STORE_DRIVER", DriverBadger)),
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Relations: RelationsConfig{
			Workers:     getIntConfigValue(*workers, "RELATION_WORKERS", 4),
			QueueSize:   getIntConfigValue("", "RELATION_QUEUE_SIZE", 256),
			MaxAttempts: getIntConfigValue("", "RELATION_MAX_ATTEMPTS", 3),
		},
		HTTP: HTTPConfig{
			CORSAllowedOrigins: splitList(getConfigValue("", "CORS_ALLOWED_ORIGINS", "*")),
			RateLimitRPS:       getFloatConfigValue("", "RATE_LIMIT_RPS", 20),
			RateLimitBurst:     getIntConfigValue("", "RATE_LIMIT_BURST", 40),
		},
	}

	timeouts := []struct {
		flagValue, envKey, fallback string
		dst                         *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
	}
	for _, t := range timeouts {
		raw := getConfigValue(t.flagValue, t.envKey, t.fallback)
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", t.envKey, raw, err)
		}
		*t.dst = d
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Outside production self links point at the local listener.
	if cfg.Server.BaseURL == "" && !cfg.App.IsProduction() {
		cfg.Server.BaseURL = "http://localhost:" + cfg.Server.Port
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}

	if c.Server.BaseURL == "" {
		return errors.New("BASE_URL is required in production")
	}

	if c.Auth.ClientID == "" {
		return errors.New("CLIENT_ID cannot be empty")
	}

	switch c.Store.Driver {
	case DriverBadger, DriverSQLite:
	default:
		return fmt.Errorf("invalid store driver: %s (must be badger or sqlite)", c.Store.Driver)
	}

	if c.Store.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Relations.Workers < 1 {
		return errors.New("RELATION_WORKERS must be at least 1")
	}
	if c.Relations.QueueSize < 1 {
		return errors.New("RELATION_QUEUE_SIZE must be at least 1")
	}
	if c.Relations.MaxAttempts < 1 {
		return errors.New("RELATION_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return filepath.Clean(abs), nil
}

func (c *Config) expandDataPath() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Store.DataPath, filepath.Join(home, "PlaylistServer", "data"))
	if err != nil {
		return err
	}
	c.Store.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparsable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
