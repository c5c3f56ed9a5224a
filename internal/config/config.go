package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	RabbitMQ    RabbitMQConfig    `mapstructure:"rabbitmq"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Outbox      OutboxConfig      `mapstructure:"outbox"`
	Consumer    ConsumerConfig    `mapstructure:"consumer"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	PaymentAPI  PaymentAPIConfig  `mapstructure:"payment_api"`
	RedirectURL RedirectURLConfig `mapstructure:"redirect_url"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Group    string `mapstructure:"group"`
}

type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type GatewayConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	// Client credentials accepted by the token endpoint. The secret is
	// stored bcrypt-hashed.
	ClientID         string        `mapstructure:"client_id"`
	ClientSecretHash string        `mapstructure:"client_secret_hash"`
	TokenExpiry      time.Duration `mapstructure:"token_expiry"`
}

type OutboxConfig struct {
	// CDC true means outbox rows are deleted in the owning transaction and
	// an external change-data-capture engine relays the committed history.
	// False leaves rows for the polling relay binary.
	CDC          bool          `mapstructure:"cdc"`
	BatchSize    int           `mapstructure:"batch_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ConsumerConfig struct {
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	CASAttempts int           `mapstructure:"cas_attempts"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// PaymentAPIConfig is how the reservation service reaches the payment
// service's authenticated order-lookup endpoint.
type PaymentAPIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// RedirectURLConfig holds the UI pages the capture and cancel callbacks
// redirect the customer to.
type RedirectURLConfig struct {
	Processing string `mapstructure:"processing"`
	Cancelled  string `mapstructure:"cancelled"`
}

func LoadConfig(name string) (*Config, error) {
	viper.SetConfigName(name)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("rabbitmq.exchange", "rental.events")
	viper.SetDefault("rabbitmq.group", "reservation-service")
	viper.SetDefault("redis.cache_ttl", time.Minute)
	viper.SetDefault("gateway.timeout", 15*time.Second)
	viper.SetDefault("auth.token_expiry", 15*time.Minute)
	viper.SetDefault("outbox.batch_size", 100)
	viper.SetDefault("outbox.poll_interval", time.Second)
	viper.SetDefault("consumer.retry_delay", 10*time.Second)
	viper.SetDefault("consumer.cas_attempts", 3)
	viper.SetDefault("payment_api.timeout", 15*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
