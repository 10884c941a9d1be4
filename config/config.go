package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/llevisouza/gestao-cobrancas/internal/messenger/email"
	"github.com/llevisouza/gestao-cobrancas/internal/messenger/whatsapp"
	"github.com/llevisouza/gestao-cobrancas/pkg/messaging/redis"
)

type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
}

type ServerConfig struct {
	Port           int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

type RedisConfig struct {
	URL          string        `yaml:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type CORSSettings struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	WhatsApp  whatsapp.Config `yaml:"whatsapp"`
	Email     email.Config    `yaml:"email"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSSettings    `yaml:"cors"`
}

// envOverrides carries the secrets and endpoints that deployments set
// through the environment rather than the config file.
type envOverrides struct {
	Database struct {
		Host     string `envconfig:"DB_HOST"`
		Port     int    `envconfig:"DB_PORT"`
		User     string `envconfig:"DB_USER"`
		Password string `envconfig:"DB_PASSWORD"`
		Name     string `envconfig:"DB_NAME"`
	}
	Redis struct {
		URL string `envconfig:"REDIS_URL"`
	}
	WhatsApp struct {
		BaseURL  string `envconfig:"EVOLUTION_API_URL"`
		APIKey   string `envconfig:"EVOLUTION_API_KEY"`
		Instance string `envconfig:"EVOLUTION_INSTANCE"`
	}
	Email struct {
		Host     string `envconfig:"SMTP_HOST"`
		Port     int    `envconfig:"SMTP_PORT"`
		Username string `envconfig:"SMTP_USERNAME"`
		Password string `envconfig:"SMTP_PASSWORD"`
		From     string `envconfig:"SMTP_FROM"`
	}
	Server struct {
		Port int `envconfig:"SERVER_PORT"`
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	applyDefaults(&config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(config *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	if env.Database.Host != "" {
		config.Database.Host = env.Database.Host
	}
	if env.Database.Port != 0 {
		config.Database.Port = env.Database.Port
	}
	if env.Database.User != "" {
		config.Database.User = env.Database.User
	}
	if env.Database.Password != "" {
		config.Database.Password = env.Database.Password
	}
	if env.Database.Name != "" {
		config.Database.Name = env.Database.Name
	}
	if env.Redis.URL != "" {
		config.Redis.URL = env.Redis.URL
	}
	if env.WhatsApp.BaseURL != "" {
		config.WhatsApp.BaseURL = env.WhatsApp.BaseURL
	}
	if env.WhatsApp.APIKey != "" {
		config.WhatsApp.APIKey = env.WhatsApp.APIKey
	}
	if env.WhatsApp.Instance != "" {
		config.WhatsApp.Instance = env.WhatsApp.Instance
	}
	if env.Email.Host != "" {
		config.Email.Host = env.Email.Host
	}
	if env.Email.Port != 0 {
		config.Email.Port = env.Email.Port
	}
	if env.Email.Username != "" {
		config.Email.Username = env.Email.Username
	}
	if env.Email.Password != "" {
		config.Email.Password = env.Email.Password
	}
	if env.Email.From != "" {
		config.Email.From = env.Email.From
	}
	if env.Server.Port != 0 {
		config.Server.Port = env.Server.Port
	}

	return nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 15 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 15 * time.Second
	}
	if config.Server.MaxHeaderBytes == 0 {
		config.Server.MaxHeaderBytes = 1 << 20
	}
	if config.Database.SSLMode == "" {
		config.Database.SSLMode = "disable"
	}
	if config.Redis.MaxRetries == 0 {
		config.Redis.MaxRetries = 3
	}
	if config.Redis.RetryBackoff == 0 {
		config.Redis.RetryBackoff = 100 * time.Millisecond
	}
	if config.Redis.PoolSize == 0 {
		config.Redis.PoolSize = 10
	}
	if config.Redis.MinIdleConns == 0 {
		config.Redis.MinIdleConns = 2
	}
	if config.WhatsApp.Timeout == 0 {
		config.WhatsApp.Timeout = 30 * time.Second
	}
	if config.RateLimit.RequestsPerSecond == 0 {
		config.RateLimit.RequestsPerSecond = 100
	}
	if config.RateLimit.Burst == 0 {
		config.RateLimit.Burst = 200
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
