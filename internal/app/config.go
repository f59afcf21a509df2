package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the storefront backend.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Verification VerificationConfig `mapstructure:"verification"`
	Email        EmailConfig        `mapstructure:"email"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Audit        AuditConfig        `mapstructure:"audit"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int                 `mapstructure:"port"`
	LogLevel        string              `mapstructure:"log_level"`
	LogFormat       string              `mapstructure:"log_format"`
	TrustedProxies  []string            `mapstructure:"trusted_proxies"`
	ShutdownTimeout time.Duration       `mapstructure:"shutdown_timeout"`
	RateLimit       HTTPRateLimitConfig `mapstructure:"rate_limit"`
}

// HTTPRateLimitConfig bounds raw request volume per client before handlers run.
type HTTPRateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int64         `mapstructure:"requests"`
	Period   time.Duration `mapstructure:"period"`
}

// VerificationConfig controls one-time email codes.
type VerificationConfig struct {
	AllowedDomains []string      `mapstructure:"allowed_domains"`
	CodeTTL        time.Duration `mapstructure:"code_ttl"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	IPLimit        int           `mapstructure:"ip_limit"`
	EmailLimit     int           `mapstructure:"email_limit"`
	RateWindow     time.Duration `mapstructure:"rate_window"`
	HashKey        string        `mapstructure:"hash_key"`
	ExposeCodes    bool          `mapstructure:"expose_codes"`
	Subject        string        `mapstructure:"subject"`
	SenderName     string        `mapstructure:"sender_name"`
	SweepSchedule  string        `mapstructure:"sweep_schedule"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	Transport       string      `mapstructure:"transport"`
	VerifyOnStartup bool        `mapstructure:"verify_on_startup"`
	SMTP            SMTPConfig  `mapstructure:"smtp"`
	Gmail           GmailConfig `mapstructure:"gmail"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GmailConfig holds OAuth2 credentials for the Gmail API transport.
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	From         string `mapstructure:"from"`
}

// DatabaseConfig describes connection options for the audit store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// AuditConfig toggles the persistent verification audit trail.
type AuditConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RetentionDays int    `mapstructure:"retention_days"`
	Schedule      string `mapstructure:"schedule"`
}

// MonitoringConfig enables metrics and tunes health probes.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health"`
}

// HealthConfig tunes the readiness probes.
type HealthConfig struct {
	PendingThreshold int `mapstructure:"pending_threshold"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Supported email transports.
const (
	TransportSMTP  = "smtp"
	TransportGmail = "gmail"
	TransportLog   = "log"
)

// legacyEnv maps config keys to environment names used by earlier deployments.
var legacyEnv = map[string]string{
	"email.smtp.host":           "SMTP_HOST",
	"email.smtp.port":           "SMTP_PORT",
	"email.smtp.username":       "SMTP_USER",
	"email.smtp.password":       "SMTP_PASS",
	"email.gmail.client_id":     "GOOGLE_CLIENT_ID",
	"email.gmail.client_secret": "GOOGLE_CLIENT_SECRET",
	"email.gmail.refresh_token": "GOOGLE_REFRESH_TOKEN",
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		primary := "STOREFRONT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, primary, legacy); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate reports configuration that cannot produce a working server.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Email.Transport)) {
	case TransportSMTP, TransportGmail, TransportLog:
	default:
		return fmt.Errorf("config: unsupported email.transport %q", c.Email.Transport)
	}

	if c.Verification.MaxAttempts < 1 {
		return errors.New("config: verification.max_attempts must be at least 1")
	}
	if c.Verification.CodeTTL <= 0 {
		return errors.New("config: verification.code_ttl must be positive")
	}
	if c.Verification.RateWindow <= 0 {
		return errors.New("config: verification.rate_window must be positive")
	}

	n, err := KeyByteLength(c.Verification.HashKey)
	if err != nil {
		return fmt.Errorf("config: verification.hash_key: %w", err)
	}
	if n > maxHashKeyBytes {
		return fmt.Errorf("config: verification.hash_key must decode to at most %d bytes, got %d", maxHashKeyBytes, n)
	}

	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.Requests <= 0 || c.Server.RateLimit.Period <= 0) {
		return errors.New("config: server.rate_limit requires positive requests and period")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests", 60)
	v.SetDefault("server.rate_limit.period", "1m")

	v.SetDefault("verification.allowed_domains", []string{"gmail.com"})
	v.SetDefault("verification.code_ttl", "10m")
	v.SetDefault("verification.max_attempts", 3)
	v.SetDefault("verification.ip_limit", 5)
	v.SetDefault("verification.email_limit", 3)
	v.SetDefault("verification.rate_window", "1h")
	v.SetDefault("verification.hash_key", "")
	v.SetDefault("verification.expose_codes", false)
	v.SetDefault("verification.subject", "Your Gmail Verification Code")
	v.SetDefault("verification.sender_name", "Watch Store")
	v.SetDefault("verification.sweep_schedule", "@every 10m")

	v.SetDefault("email.transport", TransportSMTP)
	v.SetDefault("email.verify_on_startup", false)
	v.SetDefault("email.smtp.enabled", true)
	v.SetDefault("email.smtp.host", "smtp.gmail.com")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from", "")
	v.SetDefault("email.smtp.use_tls", false)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.gmail.client_id", "")
	v.SetDefault("email.gmail.client_secret", "")
	v.SetDefault("email.gmail.refresh_token", "")
	v.SetDefault("email.gmail.from", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/storefront.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.retention_days", 90)
	v.SetDefault("audit.schedule", "@daily")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health.pending_threshold", 10000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
