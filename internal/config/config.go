// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret is used outside production when JWT_SECRET is not set.
const DevJWTSecret = "dev-only-fruit-map-secret"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env                    string `mapstructure:"APP_ENV"`
	Port                   string `mapstructure:"PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	DBHost                 string `mapstructure:"DB_HOST"`
	DBPort                 string `mapstructure:"DB_PORT"`
	DBUser                 string `mapstructure:"DB_USER"`
	DBPassword             string `mapstructure:"DB_PASSWORD"`
	DBName                 string `mapstructure:"DB_NAME"`
	DBSSLMode              string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns         int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns         int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxIdleSeconds   int    `mapstructure:"DB_CONN_MAX_IDLE_SECONDS"`
	DBAcquireTimeoutSecond int    `mapstructure:"DB_ACQUIRE_TIMEOUT_SECONDS"`
	DBSchemaMode           string `mapstructure:"DB_SCHEMA_MODE"`
	JWTSecret              string `mapstructure:"JWT_SECRET"`
	JWTExpiry              string `mapstructure:"JWT_EXPIRY"`
	FrontendURL            string `mapstructure:"FRONTEND_URL"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	FeatureFlags           string `mapstructure:"FEATURE_FLAGS"`
	TracingEnabled         bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter        string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint           string `mapstructure:"OTLP_ENDPOINT"`
	StaticDir              string `mapstructure:"STATIC_DIR"`
	RateLimitMax           int    `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWindowMinutes int    `mapstructure:"RATE_LIMIT_WINDOW_MINUTES"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read profile config 'config.%s.yml': %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "5000")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "fruit_map_dev")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 2)
	viper.SetDefault("DB_CONN_MAX_IDLE_SECONDS", 10)
	viper.SetDefault("DB_ACQUIRE_TIMEOUT_SECONDS", 30)
	viper.SetDefault("DB_SCHEMA_MODE", "auto")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_EXPIRY", "24h")
	viper.SetDefault("FRONTEND_URL", "http://localhost:3000")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("FEATURE_FLAGS", "live_map=on")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("STATIC_DIR", "")
	viper.SetDefault("RATE_LIMIT_MAX", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_MINUTES", 15)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Env = strings.ToLower(strings.TrimSpace(config.Env))
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the config describes a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// Validate ensures that required configuration values are present and meet security standards.
// Outside production a missing JWT secret is replaced by DevJWTSecret.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}

	if c.IsProduction() {
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required in production")
		}
		if c.JWTSecret == DevJWTSecret {
			return errors.New("JWT_SECRET must be changed from the development default in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if !c.IsSQLite() && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.FrontendURL == "*" {
			log.Println("WARNING: FRONTEND_URL is set to '*' in production. This is insecure.")
		}
		return nil
	}

	if c.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set; using the development secret. Never run production like this.")
		c.JWTSecret = DevJWTSecret
	}

	return nil
}

// IsSQLite reports whether DATABASE_URL selects the SQLite driver.
func (c *Config) IsSQLite() bool {
	return strings.HasPrefix(strings.ToLower(c.DatabaseURL), "sqlite:")
}

// TokenTTL parses JWT_EXPIRY. Besides Go durations ("1h", "90m") a day suffix ("7d") is accepted.
func (c *Config) TokenTTL() (time.Duration, error) {
	return ParseExpiry(c.JWTExpiry)
}

// ParseExpiry converts an expiry string into a duration; empty means 24h.
func ParseExpiry(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 24 * time.Hour, nil
	}
	if strings.HasSuffix(raw, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid JWT_EXPIRY %q", raw)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid JWT_EXPIRY %q", raw)
	}
	return d, nil
}

// RateLimitWindow returns the global limiter window.
func (c *Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.RateLimitWindowMinutes) * time.Minute
}
