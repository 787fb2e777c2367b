package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Stream   StreamConfig   `mapstructure:"stream" validate:"required"`
	Delivery DeliveryConfig `mapstructure:"delivery" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the relational backend. Driver "postgres" expects a
// postgres:// URL; driver "sqlite" expects a file path or file: DSN.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string         `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int            `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lt=525601"`
	ServiceTokens        []ServiceToken `mapstructure:"service_tokens" validate:"dive"`
}

// ServiceToken is a machine credential presented as CF-Access-Client-Id and
// CF-Access-Client-Secret headers. Only the bcrypt hash of the secret is kept.
type ServiceToken struct {
	Name       string `mapstructure:"name" validate:"required"`
	ClientID   string `mapstructure:"client_id" validate:"required"`
	SecretHash string `mapstructure:"secret_hash" validate:"required"`
}

// StreamConfig tunes the live activity stream.
type StreamConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" validate:"gt=0"`
	ClientBuffer      int           `mapstructure:"client_buffer" validate:"gt=0"`
	// PublishRatePerSec limits activity creation; 0 disables the limit.
	PublishRatePerSec float64 `mapstructure:"publish_rate_per_sec" validate:"gte=0"`
	PublishBurst      int     `mapstructure:"publish_burst" validate:"gte=0"`
}

// DeliveryConfig controls the notification delivery daemon.
type DeliveryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	BatchSize    int           `mapstructure:"batch_size" validate:"gt=0"`
	// MaxBackoff caps the pause after consecutive failed cycles; 0 disables backoff.
	MaxBackoff time.Duration `mapstructure:"max_backoff" validate:"gte=0"`
}

// RedisConfig enables cross-instance fan-out of activity events when URL is set.
type RedisConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	Instance string `mapstructure:"instance" validate:"required_with=URL"`
}

// Enabled reports whether a Redis relay should be started.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}
