package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vanrent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("VANRENT_TEST_KEY", "secret-key")

	yamlContent := `
database:
  path: "test.db"
catalog:
  path: "catalog.yaml"
pricing:
  grace_hours: 1
  timezone: "Europe/Berlin"
api:
  enabled: true
  auth:
    enabled: true
    api_keys:
      - name: web
        key: "${VANRENT_TEST_KEY}"
        permissions: ["quote", "reserve"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Pricing.GraceHours)
	assert.Equal(t, models.DefaultGranularityMinutes, cfg.Pricing.GranularityMinutes)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "secret-key", cfg.API.Auth.APIKeys[0].Key)
	assert.True(t, cfg.API.HTTP.Enabled)
	assert.Equal(t, "Europe/Berlin", cfg.Pricing.Location().String())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		cfg := Config{
			Database: DatabaseConfig{Path: "path"},
			Catalog:  CatalogConfig{Path: "catalog.yaml"},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "missing catalog path", mutate: func(c *Config) { c.Catalog.Path = "" }, wantErr: true},
		{name: "granularity too large", mutate: func(c *Config) { c.Pricing.GranularityMinutes = 500 }, wantErr: true},
		{name: "negative grace", mutate: func(c *Config) { c.Pricing.GraceHours = -1 }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Pricing.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "tls without cert", mutate: func(c *Config) { c.API.GRPC.TLS.Enabled = true }, wantErr: true},
		{
			name: "duplicate api key",
			mutate: func(c *Config) {
				c.API.Auth.APIKeys = []APIClientKey{{Name: "a", Key: "k"}, {Name: "b", Key: "k"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAPIConfig_ShutdownTimeout(t *testing.T) {
	assert.Equal(t, 10*time.Second, APIConfig{}.ShutdownTimeout())
	assert.Equal(t, 3*time.Second, APIConfig{ShutdownTimeoutSec: 3}.ShutdownTimeout())
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 8081, cfg.API.GRPC.Port)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, 10*time.Second, cfg.API.ShutdownTimeout())
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, models.DefaultGranularityMinutes, cfg.Pricing.GranularityMinutes)
	assert.Equal(t, 0, cfg.Pricing.GraceHours)
	assert.Equal(t, "EUR", cfg.Pricing.Currency)
	assert.Equal(t, models.CatalogReloadInterval, cfg.Catalog.ReloadInterval)
	assert.Equal(t, models.DefaultSlotCacheTTL, cfg.Redis.SlotTTLSec)
	assert.Contains(t, cfg.API.CORS.AllowedHeaders, "x-api-key")
	assert.Equal(t, time.UTC, cfg.Pricing.Location())
}
