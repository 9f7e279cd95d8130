package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Gateway     GatewayConfig `toml:"gateway"`
	Cache       CacheConfig   `toml:"cache"`
	Market      MarketConfig  `toml:"market"`
	Storage     StorageConfig `toml:"storage"`
	Warmup      WarmupConfig  `toml:"warmup"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// GatewayConfig contains the upstream market-data API settings.
type GatewayConfig struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	RateLimit  int    `toml:"rate_limit"` // requests per minute, 0 disables limiting
	MaxRetries int    `toml:"max_retries"`
	Timeout    string `toml:"timeout"`
}

// GetTimeout parses and returns the upstream request timeout.
func (c *GatewayConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

// CacheConfig contains proxy response cache settings.
type CacheConfig struct {
	MaxEntries int `toml:"max_entries"`
}

// MarketConfig contains settings for the dashboard session core.
type MarketConfig struct {
	ProxyURL       string `toml:"proxy_url"` // empty = this server
	Profile        string `toml:"profile"`
	RequestTimeout string `toml:"request_timeout"`
	HeaderDebounce string `toml:"header_debounce"`
	MinQueryLength int    `toml:"min_query_length"`
	HeaderResults  int    `toml:"header_results"`
	CompareResults int    `toml:"compare_results"`
}

// GetRequestTimeout returns the bounded per-call timeout used by the session core.
func (c *MarketConfig) GetRequestTimeout() time.Duration {
	return parseDuration(c.RequestTimeout, 10*time.Second)
}

// GetHeaderDebounce returns the quiet period for the header search box.
func (c *MarketConfig) GetHeaderDebounce() time.Duration {
	return parseDuration(c.HeaderDebounce, 300*time.Millisecond)
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Backend string       `toml:"backend"` // "badger" (default), "sqlite" or "memory"
	Badger  BadgerConfig `toml:"badger"`
	SQLite  SQLiteConfig `toml:"sqlite"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// WarmupConfig controls the scheduled proxy cache refresh.
type WarmupConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
	PerPage  int    `toml:"per_page"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// IsDevMode reports whether the environment is set to dev.
func (c *Config) IsDevMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "dev")
}

// BaseURL returns the address this server is reachable on.
func (c *Config) BaseURL() string {
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}

// ProxyURL returns the proxy base URL used by the session core.
func (c *Config) ProxyURL() string {
	if c.Market.ProxyURL != "" {
		return strings.TrimRight(c.Market.ProxyURL, "/")
	}
	return c.BaseURL()
}

// Validate returns a list of configuration problems. Empty means valid.
func (c *Config) Validate() []string {
	var issues []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}
	if u, err := url.Parse(c.Gateway.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, fmt.Sprintf("gateway.base_url must be an absolute URL (got %q)", c.Gateway.BaseURL))
	}
	if c.Gateway.RateLimit < 0 {
		issues = append(issues, "gateway.rate_limit must not be negative")
	}
	switch c.Storage.Backend {
	case "badger":
		if c.Storage.Badger.Path == "" {
			issues = append(issues, "storage.badger.path is required for the badger backend")
		}
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			issues = append(issues, "storage.sqlite.path is required for the sqlite backend")
		}
	case "memory":
	default:
		issues = append(issues, fmt.Sprintf("storage.backend must be badger, sqlite or memory (got %q)", c.Storage.Backend))
	}
	if c.Market.MinQueryLength < 1 {
		issues = append(issues, "market.min_query_length must be at least 1")
	}
	for name, raw := range map[string]string{
		"gateway.timeout":        c.Gateway.Timeout,
		"market.request_timeout": c.Market.RequestTimeout,
		"market.header_debounce": c.Market.HeaderDebounce,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			issues = append(issues, fmt.Sprintf("%s is not a valid duration (got %q)", name, raw))
		}
	}
	if c.Warmup.Enabled && c.Warmup.Schedule == "" {
		issues = append(issues, "warmup.schedule is required when warmup is enabled")
	}
	return issues
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	applyEnvOverrides(config)

	return config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from dotenv files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvOverrides applies COINBOARD_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COINBOARD_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("COINBOARD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("COINBOARD_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if baseURL := os.Getenv("COINBOARD_GATEWAY_URL"); baseURL != "" {
		config.Gateway.BaseURL = baseURL
	}
	// COINGECKO_API_KEY is the name the provider documents; the prefixed form wins.
	if key := os.Getenv("COINGECKO_API_KEY"); key != "" {
		config.Gateway.APIKey = key
	}
	if key := os.Getenv("COINBOARD_GATEWAY_API_KEY"); key != "" {
		config.Gateway.APIKey = key
	}
	if proxyURL := os.Getenv("COINBOARD_PROXY_URL"); proxyURL != "" {
		config.Market.ProxyURL = proxyURL
	}
	if backend := os.Getenv("COINBOARD_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if badgerPath := os.Getenv("COINBOARD_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if sqlitePath := os.Getenv("COINBOARD_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}
	if level := os.Getenv("COINBOARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("COINBOARD_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
