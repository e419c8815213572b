package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Backend types.
const (
	BackendOdoo     = "odoo"
	BackendPostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BackendConfig selects and configures the pricing backend.
type BackendConfig struct {
	Type              string        `mapstructure:"type"`
	URL               string        `mapstructure:"url"`
	Database          string        `mapstructure:"database"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	ActiveField       string        `mapstructure:"active_field"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AuthConfig holds the credentials accepted on the internal API.
type AuthConfig struct {
	InternalAPIKey string `mapstructure:"internal_api_key"`
	JWTSecret      string `mapstructure:"jwt_secret"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// BreakerConfig holds circuit breaker settings for backend calls.
type BreakerConfig struct {
	MaxFailures  int           `mapstructure:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix("RULE_RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate checks the settings the selected backend needs.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case BackendOdoo:
		if c.Backend.URL == "" {
			return errors.New("backend.url is required for the odoo backend")
		}
		if c.Backend.Database == "" || c.Backend.Username == "" {
			return errors.New("backend.database and backend.username are required for the odoo backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend.type %q (want %s or %s)", c.Backend.Type, BackendOdoo, BackendPostgres)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// loadEnvFile loads the first .env found. Variables already set in the
// environment win over the file.
func loadEnvFile() error {
	for _, dir := range []string{".", "./config"} {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		return godotenv.Load(envFile)
	}
	return errors.New("no .env file found")
}

// bindEnvVars binds common unprefixed environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", "RULE_RESOLVER_DATABASE_URL", "DATABASE_URL")

	v.BindEnv("server.port", "RULE_RESOLVER_SERVER_PORT", "PORT")
	v.BindEnv("server.host", "RULE_RESOLVER_SERVER_HOST", "HOST")

	v.BindEnv("backend.url", "RULE_RESOLVER_BACKEND_URL", "ODOO_URL")
	v.BindEnv("backend.database", "RULE_RESOLVER_BACKEND_DATABASE", "ODOO_DB")
	v.BindEnv("backend.username", "RULE_RESOLVER_BACKEND_USERNAME", "ODOO_USERNAME")
	v.BindEnv("backend.password", "RULE_RESOLVER_BACKEND_PASSWORD", "ODOO_PASSWORD")

	v.BindEnv("auth.internal_api_key", "RULE_RESOLVER_AUTH_INTERNAL_API_KEY", "INTERNAL_API_KEY")
	v.BindEnv("auth.jwt_secret", "RULE_RESOLVER_AUTH_JWT_SECRET", "JWT_SECRET")

	v.BindEnv("logging.level", "RULE_RESOLVER_LOGGING_LEVEL", "LOG_LEVEL")

	v.BindEnv("telemetry.endpoint", "RULE_RESOLVER_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.service_name", "RULE_RESOLVER_TELEMETRY_SERVICE_NAME", "OTEL_SERVICE_NAME")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("backend.type", BackendOdoo)
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.requests_per_second", 20.0)
	v.SetDefault("backend.burst", 40)
	v.SetDefault("backend.active_field", "active")

	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("rate_limit.requests_per_second", 100.0)
	v.SetDefault("rate_limit.burst", 200)

	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.reset_timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "rule-resolver")
	v.SetDefault("telemetry.environment", "production")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}
