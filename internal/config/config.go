package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"vanrent/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Exports    ExportConfig     `yaml:"exports"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`

	// ShutdownTimeoutSec bounds graceful draining of both servers.
	ShutdownTimeoutSec int `yaml:"shutdown_timeout_seconds"`
}

// ShutdownTimeout returns the drain budget for in-flight requests.
func (a APIConfig) ShutdownTimeout() time.Duration {
	if a.ShutdownTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.ShutdownTimeoutSec) * time.Second
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	TLS        APITLSConfig `yaml:"tls"`
	Reflection bool         `yaml:"reflection"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// APICORSConfig configures cross-origin access for the booking front-end.
type APICORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
	// BusyRetries is how many times a locked write is retried.
	BusyRetries int `yaml:"busy_retries"`
}

type RedisConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	SlotTTLSec int    `yaml:"slot_ttl_seconds"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// PricingConfig holds quote engine settings.
type PricingConfig struct {
	GranularityMinutes int `yaml:"granularity_minutes"`
	// GraceHours is the leftover-hours threshold folded into the last day.
	GraceHours int    `yaml:"grace_hours"`
	Currency   string `yaml:"currency"`
	Timezone   string `yaml:"timezone"`
}

// Location resolves Timezone, falling back to UTC.
func (p PricingConfig) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type CatalogConfig struct {
	Path           string `yaml:"path"`
	ReloadInterval int    `yaml:"reload_interval"`
}

type ExportConfig struct {
	MaxDays int `yaml:"max_days"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Catalog.Path == "" {
		return errors.New("catalog path is required")
	}

	if c.Pricing.GranularityMinutes < 1 || c.Pricing.GranularityMinutes > 120 {
		return fmt.Errorf("pricing granularity %d out of range 1-120", c.Pricing.GranularityMinutes)
	}

	if c.Pricing.GraceHours < 0 || c.Pricing.GraceHours > 23 {
		return fmt.Errorf("pricing grace hours %d out of range 0-23", c.Pricing.GraceHours)
	}

	if c.Pricing.Timezone != "" {
		if _, err := time.LoadLocation(c.Pricing.Timezone); err != nil {
			return fmt.Errorf("pricing timezone: %w", err)
		}
	}

	if c.API.GRPC.TLS.Enabled && (c.API.GRPC.TLS.CertFile == "" || c.API.GRPC.TLS.KeyFile == "") {
		return errors.New("grpc tls requires cert_file and key_file")
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

// ValidateAPIKeys rejects empty and duplicate keys.
func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "vanrent"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.ShutdownTimeoutSec == 0 {
		c.API.ShutdownTimeoutSec = 10
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if len(c.API.CORS.AllowedMethods) == 0 {
		c.API.CORS.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(c.API.CORS.AllowedHeaders) == 0 {
		c.API.CORS.AllowedHeaders = []string{"Content-Type", c.API.Auth.HeaderAPIKey, c.API.Auth.HeaderExtra}
	}

	if c.Database.BusyRetries == 0 {
		c.Database.BusyRetries = 3
	}
	if c.Redis.SlotTTLSec == 0 {
		c.Redis.SlotTTLSec = models.DefaultSlotCacheTTL
	}

	// Pricing defaults
	if c.Pricing.GranularityMinutes == 0 {
		c.Pricing.GranularityMinutes = models.DefaultGranularityMinutes
	}
	if c.Pricing.Currency == "" {
		c.Pricing.Currency = "EUR"
	}

	if c.Catalog.ReloadInterval == 0 {
		c.Catalog.ReloadInterval = models.CatalogReloadInterval
	}
	if c.Exports.MaxDays == 0 {
		c.Exports.MaxDays = 30
	}
}
