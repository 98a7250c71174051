package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Database configuration
	DatabaseURL string

	// NATS configuration
	NATSURL string

	// Indexing service (Helius) configuration.
	// An empty API key forces the deterministic mock indexer.
	HeliusAPIKey   string
	HeliusRPCURL   string
	HeliusParseURL string

	// Network selector: "mainnet" or "devnet". Anything other than
	// mainnet forces mock data, since the enhanced-transaction API only
	// covers mainnet history.
	SolanaNetwork string

	// ForceMockData forces the mock indexer regardless of other settings.
	ForceMockData bool

	// Price oracle configuration
	PriceURL      string
	PriceCacheTTL time.Duration

	// Pipeline configuration
	ActivityCacheTTL time.Duration

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Scheduled refresh configuration
	DefaultRefreshInterval time.Duration
	MinRefreshInterval     time.Duration
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Database configuration
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// Indexing service configuration
	cfg.HeliusAPIKey = os.Getenv("HELIUS_API_KEY")
	cfg.HeliusRPCURL = getEnvOrDefault("HELIUS_RPC_URL", "https://mainnet.helius-rpc.com")
	cfg.HeliusParseURL = getEnvOrDefault("HELIUS_PARSE_URL", "https://api.helius.xyz/v0/transactions")

	cfg.SolanaNetwork = getEnvOrDefault("SOLANA_NETWORK", "mainnet")
	if cfg.SolanaNetwork != "mainnet" && cfg.SolanaNetwork != "devnet" {
		errs = append(errs, fmt.Errorf("SOLANA_NETWORK must be mainnet or devnet, got %q", cfg.SolanaNetwork))
	}

	cfg.ForceMockData = getBoolEnv("VOUCH_FORCE_MOCK_DATA", false)

	// Price oracle configuration
	cfg.PriceURL = getEnvOrDefault("PRICE_URL", "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd")

	priceTTL, err := parseDuration("PRICE_CACHE_TTL", "1m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PriceCacheTTL = priceTTL
	}

	activityTTL, err := parseDuration("ACTIVITY_CACHE_TTL", "5m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ActivityCacheTTL = activityTTL
	}

	// Temporal configuration
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "vouch-metric-refresh")

	// Scheduled refresh configuration
	defaultInterval, err := parseDuration("DEFAULT_REFRESH_INTERVAL", "15m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DefaultRefreshInterval = defaultInterval
	}

	minInterval, err := parseDuration("MIN_REFRESH_INTERVAL", "1m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MinRefreshInterval = minInterval
	}

	if cfg.MinRefreshInterval > cfg.DefaultRefreshInterval {
		errs = append(errs, fmt.Errorf("MIN_REFRESH_INTERVAL (%v) cannot be greater than DEFAULT_REFRESH_INTERVAL (%v)",
			cfg.MinRefreshInterval, cfg.DefaultRefreshInterval))
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// UseMockData reports whether the deterministic mock indexer must be used.
// Mock data is forced when no API key is configured, when the selected
// network is not mainnet, or when the explicit override flag is set.
func (c *Config) UseMockData() bool {
	if c.ForceMockData {
		return true
	}
	if c.SolanaNetwork != "mainnet" {
		return true
	}
	return c.HeliusAPIKey == ""
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}

	if c.SolanaNetwork != "mainnet" && c.SolanaNetwork != "devnet" {
		errs = append(errs, fmt.Errorf("SolanaNetwork must be mainnet or devnet"))
	}

	if c.HeliusRPCURL == "" {
		errs = append(errs, fmt.Errorf("HeliusRPCURL is required"))
	}

	if c.HeliusParseURL == "" {
		errs = append(errs, fmt.Errorf("HeliusParseURL is required"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if c.MinRefreshInterval > c.DefaultRefreshInterval {
		errs = append(errs, fmt.Errorf("MinRefreshInterval cannot be greater than DefaultRefreshInterval"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv parses a boolean from an environment variable or uses a default.
func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return result
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}
