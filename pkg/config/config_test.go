package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.apify.com/v2", cfg.Apify.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Apify.Timeout)
	assert.Empty(t, cfg.Apify.Token)

	assert.Equal(t, "*", cfg.Server.AllowedOrigin)
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", cfg.Server.AllowedHeaders)
	assert.False(t, cfg.Server.StrictStatusCodes)
	assert.Equal(t, "instagram-data", cfg.Server.DefaultVariant)

	assert.Equal(t, StorageNone, cfg.Storage.Driver)
	assert.Equal(t, 3, cfg.Fetch.Concurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	require.NoError(t, cfg.Validate())
}

func TestValidateWithoutTokenSucceeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Apify.Token = ""

	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.HasAPIToken())

	cfg.Apify.Token = "  "
	assert.False(t, cfg.HasAPIToken())

	cfg.Apify.Token = "apify_api_x"
	assert.True(t, cfg.HasAPIToken())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APIFY_API_KEY", "env-token")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("GOINGVIRAL_LISTEN_ADDR", ":9090")
	t.Setenv("GOINGVIRAL_STRICT_STATUS_CODES", "true")
	t.Setenv("GOINGVIRAL_LAUNCHES_PER_MINUTE", "12")
	t.Setenv("GOINGVIRAL_CONCURRENCY", "5")
	t.Setenv("GOINGVIRAL_NOTIFICATIONS_ENABLED", "true")
	t.Setenv("GOINGVIRAL_LOG_LEVEL", "debug")
	t.Setenv("GOINGVIRAL_LOG_FORMAT", "json")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-token", cfg.Apify.Token)
	assert.Equal(t, "https://proj.supabase.co", cfg.Identity.SupabaseURL)
	assert.Equal(t, "anon", cfg.Identity.AnonKey)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.True(t, cfg.Server.StrictStatusCodes)
	assert.Equal(t, 12, cfg.RateLimit.LaunchesPerMinute)
	assert.Equal(t, 5, cfg.Fetch.Concurrency)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnvTokenFallback(t *testing.T) {
	t.Setenv("APIFY_API_KEY", "")
	t.Setenv("APIFY_API_TOKEN", "fallback")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, "fallback", cfg.Apify.Token)
}

func TestLoadFromEnvDatabaseURLSelectsPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/goingviral")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/goingviral", cfg.Storage.DSN)
}

func TestLoadFromEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("GOINGVIRAL_CONCURRENCY", "lots")
	t.Setenv("GOINGVIRAL_STRICT_STATUS_CODES", "maybe")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 3, cfg.Fetch.Concurrency)
	assert.False(t, cfg.Server.StrictStatusCodes)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"file storage", func(c *Config) { c.Storage.Driver = StorageFile }, false},
		{"file storage without dir", func(c *Config) {
			c.Storage.Driver = StorageFile
			c.Storage.Directory = ""
		}, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = StoragePostgres }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, true},
		{"too much concurrency", func(c *Config) { c.Fetch.Concurrency = 15 }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"session without identity", func(c *Config) { c.Server.RequireSession = true }, true},
		{"bad variant formula", func(c *Config) {
			c.Variants = map[string]VariantConfig{"instagram-data": {Engagement: "likes_only"}}
		}, true},
		{"good variant override", func(c *Config) {
			c.Variants = map[string]VariantConfig{"instagram-data": {Engagement: "per_hundred", MaxAttempts: 10}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"listen":        ":7000",
		"strict-status": true,
		"concurrency":   7,
		"storage":       StorageFile,
		"log-level":     "error",
		"log-format":    "json",
	})

	assert.Equal(t, ":7000", cfg.Server.ListenAddr)
	assert.True(t, cfg.Server.StrictStatusCodes)
	assert.Equal(t, 7, cfg.Fetch.Concurrency)
	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Fetch.Concurrency = 8
	cfg.Variants = map[string]VariantConfig{
		"instagram-posts": {PollInterval: 2 * time.Second, MaxAttempts: 50},
	}
	require.NoError(t, cfg.Save(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))
	assert.Equal(t, 8, loaded.Fetch.Concurrency)
	assert.Equal(t, 2*time.Second, loaded.Variants["instagram-posts"].PollInterval)
	assert.Equal(t, 50, loaded.Variants["instagram-posts"].MaxAttempts)
}

func TestLoadFromFileParsesDurations(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	raw := map[string]interface{}{
		"server": map[string]interface{}{
			"listen_addr":     ":8181",
			"request_timeout": "90s",
		},
		"variants": map[string]interface{}{
			"instagram-data": map[string]interface{}{
				"poll_interval": "250ms",
				"engagement":    "per_hundred",
			},
		},
	}
	data, err := yaml.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(configPath))
	assert.Equal(t, ":8181", cfg.Server.ListenAddr)
	assert.Equal(t, 90*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Variants["instagram-data"].PollInterval)
	assert.Equal(t, "per_hundred", cfg.Variants["instagram-data"].Engagement)
	// untouched sections keep their defaults
	assert.Equal(t, "*", cfg.Server.AllowedOrigin)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: warn\nfetch:\n  concurrency: 2\n"), 0600))

	t.Setenv("GOINGVIRAL_LOG_LEVEL", "error")

	cfg, err := Load(configPath, map[string]interface{}{"concurrency": 4})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
}
