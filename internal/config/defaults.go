package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4260,
			Host: "localhost",
		},
		Gateway: GatewayConfig{
			BaseURL:    "https://api.coingecko.com/api/v3",
			RateLimit:  30,
			MaxRetries: 2,
			Timeout:    "15s",
		},
		Cache: CacheConfig{
			MaxEntries: 1000,
		},
		Market: MarketConfig{
			Profile:        "local",
			RequestTimeout: "10s",
			HeaderDebounce: "300ms",
			MinQueryLength: 2,
			HeaderResults:  5,
			CompareResults: 8,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path: "./data/coinboard",
			},
			SQLite: SQLiteConfig{
				Path: "./data/coinboard.db",
			},
		},
		Warmup: WarmupConfig{
			Enabled:  true,
			Schedule: "0 */1 * * * *",
			PerPage:  50,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console", "file"},
		},
	}
}
