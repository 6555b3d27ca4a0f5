package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration settings for the geocoder.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Port: The port for the monitoring server started during a batch run.
// - RateInterval: The minimum spacing between any two outbound provider calls.
// - ProviderTimeout: The hard timeout applied to each individual provider call.
// - GoogleAPIKey: The API key for the city-level fallback geocoder.
// - Database: Configuration settings for the PostgreSQL database.
type Config struct {
	Env             string
	Port            int
	RateInterval    time.Duration
	ProviderTimeout time.Duration
	GoogleAPIKey    string
	Database        PostgresConfig
}

// PostgresConfig struct holds the configuration details for connecting to a
// PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// Load reads the configuration from environment variables, applying
// defaults for everything except the database settings, which are required.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("GEOCODER_ENV", "production")
	v.SetDefault("GEOCODER_PORT", 8080)
	v.SetDefault("GEOCODER_RATE_INTERVAL", "1000ms")
	v.SetDefault("GEOCODER_PROVIDER_TIMEOUT", "5s")
	v.SetDefault("DB_PORT", "5432")

	rateInterval, err := time.ParseDuration(v.GetString("GEOCODER_RATE_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid GEOCODER_RATE_INTERVAL: %w", err)
	}

	providerTimeout, err := time.ParseDuration(v.GetString("GEOCODER_PROVIDER_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Env:             v.GetString("GEOCODER_ENV"),
		Port:            v.GetInt("GEOCODER_PORT"),
		RateInterval:    rateInterval,
		ProviderTimeout: providerTimeout,
		GoogleAPIKey:    v.GetString("GEOCODER_GOOGLE_API_KEY"),
		Database: PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
	}

	if cfg.Database.Host == "" || cfg.Database.Name == "" {
		return nil, errors.New("database configuration is incomplete: DB_HOST and DB_NAME are required")
	}

	return cfg, nil
}
