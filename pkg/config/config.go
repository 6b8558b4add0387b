package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Delivery modes
const (
	DeliveryModeLog  = "log"
	DeliveryModeLive = "live"
)

// Config holds all configuration for the coordination service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
	Reminders  RemindersConfig  `mapstructure:"reminders"`
	Delivery   DeliveryConfig   `mapstructure:"delivery"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig holds HTTP server configuration. Timeouts are in seconds.
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	ReadTimeout   int    `mapstructure:"read_timeout"`
	WriteTimeout  int    `mapstructure:"write_timeout"`
	IdleTimeout   int    `mapstructure:"idle_timeout"`
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// StorageConfig selects the store backend
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Issuer    string `mapstructure:"issuer"`
}

// RealtimeConfig tunes the websocket hub and its worker pool
type RealtimeConfig struct {
	Workers         int           `mapstructure:"workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes"`
}

// TrackingConfig holds proximity and ETA defaults
type TrackingConfig struct {
	DefaultMaxDistance float64 `mapstructure:"default_max_distance"`
	SpeedKmh           float64 `mapstructure:"speed_kmh"`
}

// RemindersConfig configures the medicine reminder scanner
type RemindersConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	Timezone        string        `mapstructure:"timezone"`
}

// DeliveryConfig holds email and SMS provider settings
type DeliveryConfig struct {
	Mode   string       `mapstructure:"mode"`
	SMTP   SMTPConfig   `mapstructure:"smtp"`
	Twilio TwilioConfig `mapstructure:"twilio"`
}

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// TwilioConfig holds SMS provider settings
type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
	BaseURL    string `mapstructure:"base_url"`
}

// AssistantConfig configures the AI chat assistant
type AssistantConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

// RateLimitConfig caps per-user HTTP requests and inbound realtime events
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	EventsPerMin    int           `mapstructure:"events_per_min"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	MetricsPath    string  `mapstructure:"metrics_path"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	SampleRate     float64 `mapstructure:"sample_rate"`
}

// Load loads configuration from config files and environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/meditrack")

	setDefaults(v)

	v.SetEnvPrefix("MEDITRACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.allowed_origin", "http://localhost:5173")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "meditrack")
	v.SetDefault("database.user", "meditrack")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)

	v.SetDefault("storage.driver", DriverPostgres)

	v.SetDefault("jwt.issuer", "meditrack")

	v.SetDefault("realtime.workers", 8)
	v.SetDefault("realtime.queue_size", 256)
	v.SetDefault("realtime.send_buffer", 64)
	v.SetDefault("realtime.write_wait", "10s")
	v.SetDefault("realtime.pong_wait", "60s")
	v.SetDefault("realtime.max_message_bytes", 8192)

	v.SetDefault("tracking.default_max_distance", 10000)
	v.SetDefault("tracking.speed_kmh", 40)

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.interval", "1m")
	v.SetDefault("reminders.delivery_timeout", "10s")
	v.SetDefault("reminders.timezone", "Local")

	v.SetDefault("delivery.mode", DeliveryModeLog)
	v.SetDefault("delivery.smtp.host", "smtp.gmail.com")
	v.SetDefault("delivery.smtp.port", 587)
	v.SetDefault("delivery.twilio.base_url", "https://api.twilio.com")

	v.SetDefault("assistant.model", "gemini-2.0-flash")
	v.SetDefault("assistant.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("assistant.timeout", "30s")
	v.SetDefault("assistant.history_limit", 10)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_min", 300)
	v.SetDefault("rate_limit.events_per_min", 120)
	v.SetDefault("rate_limit.cleanup_interval", "10m")

	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.tracing_enabled", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4317")
	v.SetDefault("monitoring.sample_rate", 1.0)
}

// overrideWithEnv applies the conventional unprefixed variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET_KEY"); jwtSecret != "" {
		config.JWT.SecretKey = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Assistant.APIKey = apiKey
	}
}

func validate(config *Config) error {
	if config.JWT.SecretKey == "" {
		return fmt.Errorf("JWT secret key is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if config.Database.URL == "" && config.Database.Password == "" {
			return fmt.Errorf("database password is required")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", config.Storage.Driver)
	}

	switch config.Delivery.Mode {
	case DeliveryModeLog, DeliveryModeLive:
	default:
		return fmt.Errorf("unknown delivery mode: %q", config.Delivery.Mode)
	}

	if config.Reminders.Interval <= 0 {
		return fmt.Errorf("reminder interval must be positive")
	}
	if config.Reminders.DeliveryTimeout <= 0 {
		return fmt.Errorf("reminder delivery timeout must be positive")
	}
	if _, err := time.LoadLocation(config.Reminders.Timezone); err != nil {
		return fmt.Errorf("invalid reminder timezone %q: %w", config.Reminders.Timezone, err)
	}

	if config.Realtime.Workers <= 0 || config.Realtime.QueueSize <= 0 || config.Realtime.SendBuffer <= 0 {
		return fmt.Errorf("realtime workers, queue size and send buffer must be positive")
	}

	return nil
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location returns the timezone reminders are evaluated in
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
