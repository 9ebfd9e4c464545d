// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Albion    AlbionConfig    `mapstructure:"albion"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Fees      FeesConfig      `mapstructure:"fees"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat   string `mapstructure:"log_format" validate:"oneof=json text"`
}

// AlbionConfig holds the Albion Online Data Project price API settings.
type AlbionConfig struct {
	BaseURL            string        `mapstructure:"base_url" validate:"required,url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxAttempts        int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff" validate:"gte=0"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
	RateLimitPer5Min   int           `mapstructure:"rate_limit_per_5min" validate:"gte=0"`
	BreakerFailures    uint32        `mapstructure:"breaker_failures" validate:"min=1"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout" validate:"gt=0"`
}

// CacheConfig holds the in-process price cache settings.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// ScanConfig holds the default query and batching settings.
type ScanConfig struct {
	Items             []string      `mapstructure:"items" validate:"max=50,dive,required"`
	Locations         []string      `mapstructure:"locations" validate:"dive,required"`
	Quality           int           `mapstructure:"quality" validate:"min=1,max=5"`
	Mode              string        `mapstructure:"mode"`
	MinProfitPercent  float64       `mapstructure:"min_profit_percent" validate:"gte=0,lte=1000"`
	MaxDataAgeMinutes int           `mapstructure:"max_data_age_minutes" validate:"min=1,max=1440"`
	Auto              bool          `mapstructure:"auto"`
	BatchSize         int           `mapstructure:"batch_size" validate:"min=1,max=50"`
	BatchBudget       time.Duration `mapstructure:"batch_budget" validate:"gt=0"`
	BatchConcurrency  int           `mapstructure:"batch_concurrency" validate:"min=1"`
	MaxAutoScanItems  int           `mapstructure:"max_auto_scan_items" validate:"min=1"`
	WatchInterval     time.Duration `mapstructure:"watch_interval" validate:"gte=0"`
	TUIMode           bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// FeesConfig holds the default market fee rates, each a fraction.
type FeesConfig struct {
	BuyOrderFeeRate  float64 `mapstructure:"buy_order_fee_rate" validate:"gte=0,lt=1"`
	SellOrderFeeRate float64 `mapstructure:"sell_order_fee_rate" validate:"gte=0,lt=1"`
	TaxRate          float64 `mapstructure:"tax_rate" validate:"gte=0,lt=1"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ServiceName     string `mapstructure:"service_name"`
	TraceProvider   string `mapstructure:"trace_provider" validate:"omitempty,oneof=zipkin otlp-grpc otlp-http console"`
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	ZipkinEndpoint  string `mapstructure:"zipkin_endpoint"`
	MetricsExporter string `mapstructure:"metrics_exporter" validate:"omitempty,oneof=prometheus otlp"`
	PrometheusPort  int    `mapstructure:"prometheus_port" validate:"gte=0,lte=65535"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ALBION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ALBION_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ALBION_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ALBION_LOG_LEVEL", "LOG_LEVEL")

	// Upstream
	v.BindEnv("albion.base_url", "ALBION_API_BASE_URL", "ALBION_API_BASE")
	v.BindEnv("albion.request_timeout", "ALBION_REQUEST_TIMEOUT")
	v.BindEnv("albion.rate_limit_per_minute", "ALBION_RATE_LIMIT")

	// Cache
	v.BindEnv("cache.ttl", "ALBION_CACHE_TTL", "PRICE_CACHE_TTL")

	// Fees
	v.BindEnv("fees.buy_order_fee_rate", "ALBION_BUY_ORDER_FEE_RATE", "BUY_ORDER_FEE_RATE")
	v.BindEnv("fees.sell_order_fee_rate", "ALBION_SELL_ORDER_FEE_RATE", "SELL_ORDER_FEE_RATE")
	v.BindEnv("fees.tax_rate", "ALBION_TAX_RATE", "TAX_RATE")

	// Scan
	v.BindEnv("scan.max_auto_scan_items", "ALBION_MAX_AUTO_SCAN_ITEMS", "MAX_AUTO_SCAN_ITEMS")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ALBION_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ALBION_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ALBION_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "albion-arbitrage")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Albion Data Project (west server)
	v.SetDefault("albion.base_url", "https://west.albion-online-data.com/api/v2/stats/prices")
	v.SetDefault("albion.request_timeout", "12s")
	v.SetDefault("albion.max_attempts", 3)
	v.SetDefault("albion.retry_backoff", "250ms")
	v.SetDefault("albion.rate_limit_per_minute", 180)
	v.SetDefault("albion.rate_limit_per_5min", 300)
	v.SetDefault("albion.breaker_failures", 5)
	v.SetDefault("albion.breaker_open_timeout", "30s")

	v.SetDefault("cache.ttl", "30s")

	// Scan defaults
	v.SetDefault("scan.items", []string{"T4_BAG", "T4_CAPE", "T4_MAIN_SWORD", "T4_ARMOR_LEATHER_SET1", "T5_2H_FIRESTAFF"})
	v.SetDefault("scan.locations", []string{"Bridgewatch", "Caerleon", "Fort Sterling", "Lymhurst", "Martlock", "Thetford"})
	v.SetDefault("scan.quality", 1)
	v.SetDefault("scan.mode", "best")
	v.SetDefault("scan.min_profit_percent", 0)
	v.SetDefault("scan.max_data_age_minutes", 180)
	v.SetDefault("scan.auto", false)
	v.SetDefault("scan.batch_size", 20)
	v.SetDefault("scan.batch_budget", "20s")
	v.SetDefault("scan.batch_concurrency", 4)
	v.SetDefault("scan.max_auto_scan_items", 100)
	v.SetDefault("scan.watch_interval", "60s")

	// Market fees: 2.5% order setup on both sides, 4% sales tax with premium
	v.SetDefault("fees.buy_order_fee_rate", 0.025)
	v.SetDefault("fees.sell_order_fee_rate", 0.025)
	v.SetDefault("fees.tax_rate", 0.04)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "albion-arbitrage")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.zipkin_endpoint", "http://localhost:9411/api/v2/spans")
	v.SetDefault("telemetry.metrics_exporter", "prometheus")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return err
	}

	f := c.Fees
	if f.SellOrderFeeRate+f.TaxRate >= 1 {
		return fmt.Errorf("fees.sell_order_fee_rate + fees.tax_rate must be below 1, got %v", f.SellOrderFeeRate+f.TaxRate)
	}
	if len(c.Scan.Locations) == 0 {
		return fmt.Errorf("scan.locations cannot be empty")
	}
	return nil
}
