package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Storage    StorageConfig
	Email      EmailConfig
	Sync       SyncConfig
	Settlement SettlementConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// BaseURL is the public origin used to build webhook URLs for sellers
	BaseURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds the settings needed to verify bearer tokens issued by the auth provider
type JWTConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string

	// WebhookRatePerSec and WebhookBurst throttle pushes per sync config
	WebhookRatePerSec float64
	WebhookBurst      int
}

// StorageConfig holds S3-compatible object storage settings used to archive raw catalog payloads
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	KeyPrefix    string
}

// EmailConfig holds SendGrid settings for seller notifications
type EmailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
}

// SyncConfig holds catalog synchronization settings
type SyncConfig struct {
	Enabled          bool
	CronSpec         string        // how often due configs are dispatched
	FetchTimeout     time.Duration // per outbound catalog request
	FetchRatePerSec  float64       // outbound requests per second across all sources
	FetchBurst       int
	MaxSourceBytes   int64
	LockTTL          time.Duration // stale-lock timeout for the per-config sync lock
	RunTimeout       time.Duration
	StrictRemoval    bool // mark dropped products withdrawn instead of sold
	WebhookDedupeTTL time.Duration
	MaxWebhookBytes  int64
}

// SettlementConfig holds commission and payout settings
type SettlementConfig struct {
	CommissionRate        decimal.Decimal
	ReconcileCronSpec     string
	ReconcileEnabled      bool
	PayoutEmailsEnabled   bool
	NotificationDedupeTTL time.Duration
}

// TelemetryConfig holds OpenTelemetry tracing settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
	DBTracing         bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ZETTA_ prefix (e.g., ZETTA_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ZETTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("telemetry.sampling_ratio", 1.0)

	rate, err := parseRate(v.GetString("settlement.commission_rate"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			BaseURL: v.GetString("app.base_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			WebhookRatePerSec: v.GetFloat64("http.webhook_rate_per_sec"),
			WebhookBurst:      v.GetInt("http.webhook_burst"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			KeyPrefix:    v.GetString("storage.key_prefix"),
		},
		Email: EmailConfig{
			SendGridAPIKey: v.GetString("email.sendgrid_api_key"),
			FromAddress:    v.GetString("email.from_address"),
			FromName:       v.GetString("email.from_name"),
		},
		Sync: SyncConfig{
			Enabled:          !v.IsSet("sync.enabled") || v.GetBool("sync.enabled"),
			CronSpec:         v.GetString("sync.cron_spec"),
			FetchTimeout:     v.GetDuration("sync.fetch_timeout"),
			FetchRatePerSec:  v.GetFloat64("sync.fetch_rate_per_sec"),
			FetchBurst:       v.GetInt("sync.fetch_burst"),
			MaxSourceBytes:   v.GetInt64("sync.max_source_bytes"),
			LockTTL:          v.GetDuration("sync.lock_ttl"),
			RunTimeout:       v.GetDuration("sync.run_timeout"),
			StrictRemoval:    v.GetBool("sync.strict_removal"),
			WebhookDedupeTTL: v.GetDuration("sync.webhook_dedupe_ttl"),
			MaxWebhookBytes:  v.GetInt64("sync.max_webhook_bytes"),
		},
		Settlement: SettlementConfig{
			CommissionRate:        rate,
			ReconcileCronSpec:     v.GetString("settlement.reconcile_cron_spec"),
			ReconcileEnabled:      !v.IsSet("settlement.reconcile_enabled") || v.GetBool("settlement.reconcile_enabled"),
			PayoutEmailsEnabled:   v.GetBool("settlement.payout_emails_enabled"),
			NotificationDedupeTTL: v.GetDuration("settlement.notification_dedupe_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("settlement.commission_rate: %w", err)
	}
	return rate, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "zetta-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "zetta"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "zetta-auth"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20
	}
	// CORS origins have no wildcard fallback; an empty list blocks cross-origin calls.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.WebhookRatePerSec == 0 {
		cfg.HTTP.WebhookRatePerSec = 10
	}
	if cfg.HTTP.WebhookBurst == 0 {
		cfg.HTTP.WebhookBurst = 20
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "catalog-sync"
	}
	if cfg.Email.FromAddress == "" {
		cfg.Email.FromAddress = "payouts@zetta.example"
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "Zetta Payouts"
	}
	if cfg.Sync.CronSpec == "" {
		cfg.Sync.CronSpec = "@every 1m"
	}
	if cfg.Sync.FetchTimeout == 0 {
		cfg.Sync.FetchTimeout = 30 * time.Second
	}
	if cfg.Sync.FetchRatePerSec == 0 {
		cfg.Sync.FetchRatePerSec = 5
	}
	if cfg.Sync.FetchBurst == 0 {
		cfg.Sync.FetchBurst = 5
	}
	if cfg.Sync.MaxSourceBytes == 0 {
		cfg.Sync.MaxSourceBytes = 50 << 20
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 30 * time.Minute
	}
	if cfg.Sync.RunTimeout == 0 {
		cfg.Sync.RunTimeout = 20 * time.Minute
	}
	if cfg.Sync.WebhookDedupeTTL == 0 {
		cfg.Sync.WebhookDedupeTTL = 72 * time.Hour
	}
	if cfg.Sync.MaxWebhookBytes == 0 {
		cfg.Sync.MaxWebhookBytes = 1 << 20
	}
	if cfg.Settlement.CommissionRate.IsZero() {
		cfg.Settlement.CommissionRate = decimal.RequireFromString("0.15")
	}
	if cfg.Settlement.ReconcileCronSpec == "" {
		cfg.Settlement.ReconcileCronSpec = "0 * * * *"
	}
	if cfg.Settlement.NotificationDedupeTTL == 0 {
		cfg.Settlement.NotificationDedupeTTL = 7 * 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Settlement.CommissionRate.IsNegative() || c.Settlement.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("settlement.commission_rate must be between 0 and 1, got %s", c.Settlement.CommissionRate)
	}
	if c.Sync.FetchRatePerSec < 0 {
		return fmt.Errorf("sync.fetch_rate_per_sec cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Settlement.PayoutEmailsEnabled && c.Email.SendGridAPIKey == "" {
			return fmt.Errorf("email.sendgrid_api_key is required when payout emails are enabled in production")
		}
	}

	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
