package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Booking  BookingConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	RetryBackoff int    `mapstructure:"retry_backoff_ms"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type BookingConfig struct {
	DefaultHoldTTLMinutes  int    `mapstructure:"default_hold_ttl_minutes"`
	ReaperIntervalMinutes  int    `mapstructure:"reaper_interval_minutes"`
	FallbackSweepThreshold int64  `mapstructure:"fallback_sweep_threshold"`
	ExpirySpikeThreshold   int64  `mapstructure:"expiry_spike_threshold"`
	GuestTokenTTLHours     int    `mapstructure:"guest_token_ttl_hours"`
	DefaultCapacity        int    `mapstructure:"default_capacity"`
	TokenRatePerMinute     int    `mapstructure:"token_rate_per_minute"`
	TokenRateBurst         int    `mapstructure:"token_rate_burst"`
	CronToken              string `mapstructure:"cron_token"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

func (c BookingConfig) ReaperInterval() time.Duration {
	return time.Duration(c.ReaperIntervalMinutes) * time.Minute
}

func (c BookingConfig) GuestTokenTTL() time.Duration {
	return time.Duration(c.GuestTokenTTLHours) * time.Hour
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("booking.default_hold_ttl_minutes", 15)
	viper.SetDefault("booking.reaper_interval_minutes", 5)
	viper.SetDefault("booking.fallback_sweep_threshold", 50)
	viper.SetDefault("booking.expiry_spike_threshold", 500)
	viper.SetDefault("booking.guest_token_ttl_hours", 72)
	viper.SetDefault("booking.default_capacity", 1)
	viper.SetDefault("booking.token_rate_per_minute", 10)
	viper.SetDefault("booking.token_rate_burst", 5)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
