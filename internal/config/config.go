// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Environment variable names, all prefixed with TANDA_.
const (
	Port          = "PORT"
	DbPath        = "DB_PATH"
	JWTSecret     = "JWT_SECRET"
	TokenDuration = "TOKEN_DURATION"
	FaucetAmount  = "FAUCET_AMOUNT"
	LogLevel      = "LOG_LEVEL"
)

const (
	defaultPort          = 8080
	defaultDbPath        = "./data/tanda.db"
	defaultTokenDuration = 24 * time.Hour
	defaultFaucetAmount  = 10_000
	defaultLogLevel      = "info"

	// devJWTSecret is used when TANDA_JWT_SECRET is unset; main logs a
	// warning so it never ends up in production unnoticed.
	devJWTSecret = "dev-secret-do-not-use-in-production"
)

// Config holds everything the server needs to run.
type Config struct {
	Port          int
	DbPath        string
	JWTSecret     string
	TokenDuration time.Duration
	FaucetAmount  int64
	LogLevel      string

	// DevSecret is true when the bundled development JWT secret is in
	// use; main logs a warning in that case.
	DevSecret bool
}

// Load reads configuration from TANDA_-prefixed environment variables,
// falling back to development defaults.
func Load() (*Config, error) {
	viper.SetEnvPrefix("TANDA")
	viper.AutomaticEnv()

	viper.SetDefault(Port, defaultPort)
	viper.SetDefault(DbPath, defaultDbPath)
	viper.SetDefault(JWTSecret, "")
	viper.SetDefault(TokenDuration, defaultTokenDuration)
	viper.SetDefault(FaucetAmount, defaultFaucetAmount)
	viper.SetDefault(LogLevel, defaultLogLevel)

	cfg := &Config{
		Port:          viper.GetInt(Port),
		DbPath:        viper.GetString(DbPath),
		JWTSecret:     viper.GetString(JWTSecret),
		TokenDuration: viper.GetDuration(TokenDuration),
		FaucetAmount:  viper.GetInt64(FaucetAmount),
		LogLevel:      viper.GetString(LogLevel),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.TokenDuration <= 0 {
		return nil, fmt.Errorf("invalid token duration: %s", cfg.TokenDuration)
	}
	if cfg.FaucetAmount <= 0 {
		return nil, fmt.Errorf("invalid faucet amount: %d", cfg.FaucetAmount)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
		cfg.DevSecret = true
	}

	return cfg, nil
}
