package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP server and tracking URLs
	Server ServerConfig `mapstructure:"server"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	Auth        AuthConfig        `mapstructure:"auth"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Mail        MailConfig        `mapstructure:"mail"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// PublicBaseURL overrides the scheme+host taken from the send request.
	PublicBaseURL      string `mapstructure:"public_base_url"`
	DefaultRedirectURL string `mapstructure:"default_redirect_url"`
	Timezone           string `mapstructure:"timezone"`
	PageSize           int    `mapstructure:"page_size"`
	// TrustedProxies lists peers (IPs or CIDRs) whose X-Forwarded-For is
	// believed for rate limiting. Empty means the socket peer is the client.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

	// pgx pool
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`

	// database/sql pool behind gorm
	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type AuthConfig struct {
	// Disabled runs the dashboard API in single-tenant mode: every caller is an admin.
	Disabled  bool          `mapstructure:"disabled"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type GeolocationConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type MailConfig struct {
	Provider string     `mapstructure:"provider"`
	From     string     `mapstructure:"from"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
	SES      SESConfig  `mapstructure:"ses"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// SkipVerify accepts any relay certificate (self-signed internal relays).
	// STARTTLS is still used whenever the relay offers it.
	SkipVerify bool `mapstructure:"skip_verify"`
}

type SESConfig struct {
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Encoding   string `mapstructure:"encoding"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

var ErrMissingJWTSecret = errors.New("auth.jwt_secret is required unless auth.disabled is set")

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if !c.Auth.Disabled && c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.Mail.Provider {
	case "", "smtp", "ses":
	default:
		return fmt.Errorf("mail.provider must be smtp or ses, got %q", c.Mail.Provider)
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.default_redirect_url", "https://www.google.com")
	v.SetDefault("server.timezone", "Africa/Cairo")
	v.SetDefault("server.page_size", 50)

	v.SetDefault("postgres.max_open_conns", 25)
	v.SetDefault("postgres.max_idle_conns", 10)

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("auth.issuer", "mailpulse")
	v.SetDefault("auth.token_ttl", "720h")

	v.SetDefault("geolocation.enabled", true)
	v.SetDefault("geolocation.endpoint", "https://ipapi.co")
	v.SetDefault("geolocation.timeout", "10s")
	v.SetDefault("geolocation.cache_ttl", "24h")

	v.SetDefault("mail.provider", "smtp")
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.ses.region", "us-east-1")

	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.addr", "HTTP_ADDR")
	v.BindEnv("server.public_base_url", "PUBLIC_BASE_URL")
	v.BindEnv("server.default_redirect_url", "DEFAULT_REDIRECT_URL")
	v.BindEnv("server.timezone", "APP_TIMEZONE")
	v.BindEnv("server.trusted_proxies", "TRUSTED_PROXIES")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.enabled", "NATS_ENABLED")
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")

	// Auth
	v.BindEnv("auth.disabled", "AUTH_DISABLED")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// Mail
	v.BindEnv("mail.provider", "MAIL_PROVIDER")
	v.BindEnv("mail.from", "MAIL_FROM")
	v.BindEnv("mail.smtp.host", "SMTP_HOST")
	v.BindEnv("mail.smtp.port", "SMTP_PORT")
	v.BindEnv("mail.smtp.username", "SMTP_USERNAME")
	v.BindEnv("mail.smtp.password", "SMTP_PASSWORD")
	v.BindEnv("mail.smtp.skip_verify", "SMTP_SKIP_VERIFY")
	v.BindEnv("mail.ses.region", "AWS_REGION")
	v.BindEnv("mail.ses.access_key", "AWS_ACCESS_KEY_ID")
	v.BindEnv("mail.ses.secret_key", "AWS_SECRET_ACCESS_KEY")

	// Logging
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.file", "LOG_FILE")
}
