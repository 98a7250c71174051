package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.ServerAddr) // Default
	assert.Equal(t, "info", cfg.LogLevel)    // Default
	assert.Equal(t, "mainnet", cfg.SolanaNetwork)
	assert.Equal(t, time.Minute, cfg.PriceCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.ActivityCacheTTL)
	assert.Equal(t, 15*time.Minute, cfg.DefaultRefreshInterval)
	assert.Equal(t, time.Minute, cfg.MinRefreshInterval)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_InvalidNetwork(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_NETWORK", "testnet")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SOLANA_NETWORK must be mainnet or devnet")
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("ACTIVITY_CACHE_TTL", "invalid")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_MinIntervalGreaterThanDefault(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("DEFAULT_REFRESH_INTERVAL", "1m")
	os.Setenv("MIN_REFRESH_INTERVAL", "5m")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "cannot be greater than")
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SERVER_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("HELIUS_API_KEY", "secret-key")
	os.Setenv("HELIUS_RPC_URL", "https://rpc.example.com")
	os.Setenv("TEMPORAL_HOST", "temporal.example.com:7233")
	os.Setenv("DEFAULT_REFRESH_INTERVAL", "30m")
	os.Setenv("MIN_REFRESH_INTERVAL", "5m")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "secret-key", cfg.HeliusAPIKey)
	assert.Equal(t, "https://rpc.example.com", cfg.HeliusRPCURL)
	assert.Equal(t, "temporal.example.com:7233", cfg.TemporalHost)
	assert.Equal(t, 30*time.Minute, cfg.DefaultRefreshInterval)
	assert.Equal(t, 5*time.Minute, cfg.MinRefreshInterval)
}

func TestUseMockData(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{
			name: "api key on mainnet uses live data",
			cfg:  Config{HeliusAPIKey: "key", SolanaNetwork: "mainnet"},
			want: false,
		},
		{
			name: "missing api key forces mock",
			cfg:  Config{SolanaNetwork: "mainnet"},
			want: true,
		},
		{
			name: "non-mainnet network forces mock",
			cfg:  Config{HeliusAPIKey: "key", SolanaNetwork: "devnet"},
			want: true,
		},
		{
			name: "explicit override forces mock",
			cfg:  Config{HeliusAPIKey: "key", SolanaNetwork: "mainnet", ForceMockData: true},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.UseMockData())
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		DatabaseURL:            "postgres://localhost/test",
		SolanaNetwork:          "mainnet",
		HeliusRPCURL:           "https://rpc.example.com",
		HeliusParseURL:         "https://parse.example.com",
		TemporalHost:           "localhost:7233",
		TemporalNamespace:      "default",
		TemporalTaskQueue:      "vouch-metric-refresh",
		DefaultRefreshInterval: 15 * time.Minute,
		MinRefreshInterval:     time.Minute,
	}
	require.NoError(t, cfg.Validate())

	cfg.DatabaseURL = ""
	require.Error(t, cfg.Validate())
}

// cleanupEnv removes all environment variables used by Load.
func cleanupEnv() {
	vars := []string{
		"SERVER_ADDR",
		"LOG_LEVEL",
		"DATABASE_URL",
		"NATS_URL",
		"HELIUS_API_KEY",
		"HELIUS_RPC_URL",
		"HELIUS_PARSE_URL",
		"SOLANA_NETWORK",
		"VOUCH_FORCE_MOCK_DATA",
		"PRICE_URL",
		"PRICE_CACHE_TTL",
		"ACTIVITY_CACHE_TTL",
		"TEMPORAL_HOST",
		"TEMPORAL_NAMESPACE",
		"TEMPORAL_TASK_QUEUE",
		"DEFAULT_REFRESH_INTERVAL",
		"MIN_REFRESH_INTERVAL",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
