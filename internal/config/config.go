// Package config loads service settings from the environment with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every setting the server reads at startup.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	DBPath     string `mapstructure:"DB_PATH"`

	// JWTSecret verifies identity tokens. Required.
	JWTSecret string `mapstructure:"JWT_SECRET"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	Currency             string `mapstructure:"CURRENCY"`
	ProcessingFeePercent string `mapstructure:"PROCESSING_FEE_PERCENT"`
	ActivityFeedLimit    int    `mapstructure:"ACTIVITY_FEED_LIMIT"`

	// RedisURL enables the shared lock; empty means in-process locks.
	RedisURL string        `mapstructure:"REDIS_URL"`
	LockTTL  time.Duration `mapstructure:"LOCK_TTL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// FeePercent is ProcessingFeePercent parsed by Load.
	FeePercent decimal.Decimal `mapstructure:"-"`
}

var keys = []string{
	"SERVER_PORT",
	"DB_PATH",
	"JWT_SECRET",
	"STRIPE_SECRET_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"CURRENCY",
	"PROCESSING_FEE_PERCENT",
	"ACTIVITY_FEED_LIMIT",
	"REDIS_URL",
	"LOCK_TTL",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DB_PATH", "./data/groupsplit.db")
	v.SetDefault("CURRENCY", "usd")
	v.SetDefault("PROCESSING_FEE_PERCENT", "3")
	v.SetDefault("ACTIVITY_FEED_LIMIT", 10)
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	// Bind explicitly so keys without defaults appear in Unmarshal
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}

	fee, err := decimal.NewFromString(strings.TrimSpace(c.ProcessingFeePercent))
	if err != nil {
		return fmt.Errorf("PROCESSING_FEE_PERCENT %q is not a number: %w", c.ProcessingFeePercent, err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("PROCESSING_FEE_PERCENT must not be negative, got %s", fee)
	}
	c.FeePercent = fee

	if c.ActivityFeedLimit <= 0 {
		return fmt.Errorf("ACTIVITY_FEED_LIMIT must be positive, got %d", c.ActivityFeedLimit)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", c.LockTTL)
	}

	c.Currency = strings.ToLower(strings.TrimSpace(c.Currency))
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a three-letter ISO code, got %q", c.Currency)
	}
	return nil
}
