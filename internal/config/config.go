// Package config loads walletsync configuration from a YAML file,
// WALLETSYNC_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix for environment overrides, e.g. WALLETSYNC_POSTGRES_DSN.
const EnvPrefix = "WALLETSYNC"

// Config holds the application configuration.
type Config struct {
	Provider   ProviderConfig   `mapstructure:"provider"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Retention  RetentionConfig  `mapstructure:"retention"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Shutdown   ShutdownConfig   `mapstructure:"shutdown"`
}

type ProviderConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
	RateLimit  float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst  int           `mapstructure:"rate_burst"`
}

type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ClickHouseConfig configures the optional balance history sink.
// An empty DSN disables it.
type ClickHouseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type SyncConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	TransactionLimit  int           `mapstructure:"transaction_limit"`
	WalletConcurrency int           `mapstructure:"wallet_concurrency"`
	RunOnStart        bool          `mapstructure:"run_on_start"`
}

type PricingConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // 0 disables caching
}

type RetentionConfig struct {
	Schedule         string        `mapstructure:"schedule"`
	SnapshotMaxAge   time.Duration `mapstructure:"snapshot_max_age"`
	EventMaxAge      time.Duration `mapstructure:"event_max_age"`
	EvaluationMaxAge time.Duration `mapstructure:"evaluation_max_age"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the HTTP endpoint
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type ShutdownConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

var defaults = map[string]any{
	"provider.base_url":            "",
	"provider.api_key":             "",
	"provider.timeout":             "30s",
	"provider.max_retries":         3,
	"provider.retry_delay":         "500ms",
	"provider.max_delay":           "10s",
	"provider.rate_limit":          10.0,
	"provider.rate_burst":          5,
	"postgres.dsn":                 "",
	"postgres.max_conns":           10,
	"clickhouse.dsn":               "",
	"sync.interval":                "5m",
	"sync.transaction_limit":       20,
	"sync.wallet_concurrency":      1,
	"sync.run_on_start":            true,
	"pricing.cache_ttl":            "0s",
	"retention.schedule":           "0 2 * * *",
	"retention.snapshot_max_age":   "720h",
	"retention.event_max_age":      "2160h",
	"retention.evaluation_max_age": "720h",
	"metrics.addr":                 ":9090",
	"logging.level":                "info",
	"logging.format":               "json",
	"shutdown.grace_period":        "30s",
}

// NewViper returns a viper instance with defaults and environment binding
// applied. Callers may bind command-line flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path. When path is empty, walletsync.yaml is
// looked up in the working directory and a missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadWithViper(NewViper(), path)
}

// LoadWithViper is Load on a caller-supplied viper instance.
func LoadWithViper(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("walletsync")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// ValidateStorage checks the settings needed to open the primary store.
func (c *Config) ValidateStorage() error {
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Postgres.MaxConns < 0 {
		return errors.New("postgres.max_conns must be non-negative")
	}
	return nil
}

// Validate checks the full configuration for the sync and prune commands.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ValidateStorage(); err != nil {
		errs = append(errs, err)
	}
	if c.Provider.BaseURL == "" {
		errs = append(errs, errors.New("provider.base_url is required"))
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("provider.timeout must be positive"))
	}
	if c.Provider.MaxRetries < 0 {
		errs = append(errs, errors.New("provider.max_retries must be non-negative"))
	}
	if c.Provider.RateLimit < 0 {
		errs = append(errs, errors.New("provider.rate_limit must be non-negative"))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("sync.interval must be positive"))
	}
	if c.Sync.TransactionLimit <= 0 {
		errs = append(errs, errors.New("sync.transaction_limit must be positive"))
	}
	if c.Sync.WalletConcurrency < 1 {
		errs = append(errs, errors.New("sync.wallet_concurrency must be at least 1"))
	}
	if c.Pricing.CacheTTL < 0 {
		errs = append(errs, errors.New("pricing.cache_ttl must be non-negative"))
	}
	if _, err := cron.ParseStandard(c.Retention.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("retention.schedule: %w", err))
	}
	if c.Retention.SnapshotMaxAge <= 0 || c.Retention.EventMaxAge <= 0 || c.Retention.EvaluationMaxAge <= 0 {
		errs = append(errs, errors.New("retention max ages must be positive"))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	if c.Shutdown.GracePeriod <= 0 {
		errs = append(errs, errors.New("shutdown.grace_period must be positive"))
	}

	return errors.Join(errs...)
}
