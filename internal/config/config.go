package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	KPI        KPIConfig        `mapstructure:"kpi"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// KPIConfig contains evaluation engine settings
type KPIConfig struct {
	TrendAlertDelta      float64       `mapstructure:"trend_alert_delta"`
	SingleFlight         bool          `mapstructure:"single_flight"`
	RecomputeTimeout     time.Duration `mapstructure:"recompute_timeout"`
	DefaultDateRangeDays int           `mapstructure:"default_date_range_days"`
}

// ProvidersConfig contains metrics provider settings
type ProvidersConfig struct {
	Google GoogleConfig `mapstructure:"google"`
}

// GoogleConfig configures the Analytics Data and Search Console clients
type GoogleConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	ClientID             string        `mapstructure:"client_id"`
	ClientSecret         string        `mapstructure:"client_secret"`
	RefreshToken         string        `mapstructure:"refresh_token"`
	TokenURL             string        `mapstructure:"token_url"`
	AnalyticsBaseURL     string        `mapstructure:"analytics_base_url"`
	SearchConsoleBaseURL string        `mapstructure:"search_console_base_url"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
}

// MonitoringConfig contains monitoring and metrics configuration
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus exposition settings
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Prefix  string `mapstructure:"prefix"`
}

// SecurityConfig contains CORS and rate limiting settings
type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

// Load reads config.yaml from ./configs or the working directory, then
// applies environment overrides
func Load() (*Config, error) {
	return load(viper.New(), "")
}

// LoadFile reads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Read environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Override specific values from env
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("logging.level", "LOG_LEVEL")

	// Google provider bindings
	v.BindEnv("providers.google.client_id", "GOOGLE_CLIENT_ID")
	v.BindEnv("providers.google.client_secret", "GOOGLE_CLIENT_SECRET")
	v.BindEnv("providers.google.refresh_token", "GOOGLE_REFRESH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration for completeness and correctness
func (c *Config) Validate() error {
	var errs []string

	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errs = append(errs, "server.host is required")
	}

	// Validate database configuration
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.MaxConnections < 0 {
		errs = append(errs, "database.max_connections must be non-negative")
	}

	// Validate authentication configuration
	if c.Auth.Enabled && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "your-secret-key-here") {
		errs = append(errs, "auth.jwt_secret must be set to a secure value when enabled")
	}

	// Validate engine configuration
	if c.KPI.TrendAlertDelta <= 0 {
		errs = append(errs, "kpi.trend_alert_delta must be greater than 0")
	}
	if c.KPI.RecomputeTimeout < 0 {
		errs = append(errs, "kpi.recompute_timeout must be non-negative")
	}
	if c.KPI.DefaultDateRangeDays <= 0 {
		errs = append(errs, "kpi.default_date_range_days must be greater than 0")
	}

	// Validate Google provider if enabled
	if g := c.Providers.Google; g.Enabled {
		if g.ClientID == "" {
			errs = append(errs, "providers.google.client_id is required when Google is enabled")
		}
		if g.ClientSecret == "" {
			errs = append(errs, "providers.google.client_secret is required when Google is enabled")
		}
		if g.RefreshToken == "" {
			errs = append(errs, "providers.google.refresh_token is required when Google is enabled")
		}
		if g.MaxRetries < 0 {
			errs = append(errs, "providers.google.max_retries must be non-negative")
		}
		for key, raw := range map[string]string{
			"token_url":               g.TokenURL,
			"analytics_base_url":      g.AnalyticsBaseURL,
			"search_console_base_url": g.SearchConsoleBaseURL,
		} {
			if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Sprintf("providers.google.%s must be an absolute URL", key))
			}
		}
	}

	// Validate monitoring
	if c.Monitoring.Prometheus.Enabled && !strings.HasPrefix(c.Monitoring.Prometheus.Path, "/") {
		errs = append(errs, "monitoring.prometheus.path must start with /")
	}

	// Validate rate limiting; rps 0 disables it
	if c.Security.RateLimitRPS < 0 {
		errs = append(errs, "security.rate_limit_rps must be non-negative")
	}
	if c.Security.RateLimitRPS > 0 && c.Security.RateLimitBurst <= 0 {
		errs = append(errs, "security.rate_limit_burst must be greater than 0 when rate limiting is enabled")
	}

	// If there are validation errors, return them
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "development")

	// Database defaults
	v.SetDefault("database.path", "./data/kpi.db")
	v.SetDefault("database.migrations_path", "./migrations")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.auto_migrate", true)

	// Auth defaults
	v.SetDefault("auth.enabled", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Engine defaults
	v.SetDefault("kpi.trend_alert_delta", 5.0)
	v.SetDefault("kpi.single_flight", true)
	v.SetDefault("kpi.recompute_timeout", "30s")
	v.SetDefault("kpi.default_date_range_days", 30)

	// Google provider defaults
	v.SetDefault("providers.google.enabled", false)
	v.SetDefault("providers.google.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("providers.google.analytics_base_url", "https://analyticsdata.googleapis.com")
	v.SetDefault("providers.google.search_console_base_url", "https://www.googleapis.com")
	v.SetDefault("providers.google.timeout", "30s")
	v.SetDefault("providers.google.max_retries", 2)

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.path", "/metrics")
	v.SetDefault("monitoring.prometheus.prefix", "kpi")

	// Security defaults
	v.SetDefault("security.enable_cors", true)
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
}
