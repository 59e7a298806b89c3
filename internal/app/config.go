package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/lifeadmin/pkg/validator"
)

// Config represents the runtime configuration for the lifeadmin reminder engine.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"min=0,max=65535"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// KeyPrefix namespaces rate-limit counters and sweep locks.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints. SweepMaxAge is how long a sweep may go without a
// successful run before readiness reports it as degraded.
type HealthConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	SweepMaxAge time.Duration `mapstructure:"sweep_max_age"`
}

// AuthConfig captures the ops surface authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
	Leeway time.Duration `mapstructure:"leeway"`
}

// NotificationsConfig groups delivery channel settings.
type NotificationsConfig struct {
	Branding BrandingConfig `mapstructure:"branding"`
	Email    EmailConfig    `mapstructure:"email"`
	SMS      SMSConfig      `mapstructure:"sms"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	AWS      AWSConfig      `mapstructure:"aws"`
}

// BrandingConfig customises rendered email content.
type BrandingConfig struct {
	AppName      string `mapstructure:"app_name"`
	PrimaryColor string `mapstructure:"primary_color"`
	FooterText   string `mapstructure:"footer_text"`
	DashboardURL string `mapstructure:"dashboard_url"`
}

// EmailConfig selects the email provider. Provider is "smtp", "ses" or empty to disable email.
type EmailConfig struct {
	Provider string     `mapstructure:"provider"`
	From     string     `mapstructure:"from"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SMSConfig configures the SNS text message channel.
type SMSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SenderID string `mapstructure:"sender_id"`
}

// WhatsAppConfig configures the Twilio WhatsApp channel.
type WhatsAppConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	AccountSID string        `mapstructure:"account_sid"`
	AuthToken  string        `mapstructure:"auth_token"`
	From       string        `mapstructure:"from"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// AWSConfig holds the shared AWS client settings for SES and SNS.
type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// SchedulerConfig controls when sweeps run.
type SchedulerConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Timezone           string        `mapstructure:"timezone"`
	HourlySchedule     string        `mapstructure:"hourly_schedule" validate:"omitempty,cronspec"`
	TransitionSchedule string        `mapstructure:"transition_schedule" validate:"omitempty,cronspec"`
	StartupDelay       time.Duration `mapstructure:"startup_delay"`
	DistributedLock    bool          `mapstructure:"distributed_lock"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	DayBeforeHours     []int         `mapstructure:"day_before_hours" validate:"dive,min=0,max=23"`
	DueTodayHours      []int         `mapstructure:"due_today_hours" validate:"dive,min=0,max=23"`
	UpcomingFrom       time.Duration `mapstructure:"upcoming_from"`
	UpcomingUntil      time.Duration `mapstructure:"upcoming_until"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
// A .env file in the working directory or any supplied path is loaded first; variables
// already present in the environment win.
func LoadConfig(paths ...string) (*Config, error) {
	if err := loadDotEnv(paths); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("LIFEADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	if err := validator.ValidateStruct(&config); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &config, nil
}

func loadDotEnv(paths []string) error {
	candidates := []string{".env"}
	for _, path := range paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}

	var files []string
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			files = append(files, candidate)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/lifeadmin.sqlite")
	v.SetDefault("database.dsn", "")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.key_prefix", "lifeadmin")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.health_check.sweep_max_age", "2h")

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "lifeadmin")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")
	v.SetDefault("auth.jwt.leeway", "30s")

	v.SetDefault("notifications.branding.app_name", "Life Admin")
	v.SetDefault("notifications.branding.primary_color", "#2563eb")
	v.SetDefault("notifications.branding.footer_text", "")
	v.SetDefault("notifications.branding.dashboard_url", "")
	v.SetDefault("notifications.email.provider", "")
	v.SetDefault("notifications.email.from", "")
	v.SetDefault("notifications.email.smtp.host", "")
	v.SetDefault("notifications.email.smtp.username", "")
	v.SetDefault("notifications.email.smtp.password", "")
	v.SetDefault("notifications.email.smtp.port", 587)
	v.SetDefault("notifications.email.smtp.use_tls", true)
	v.SetDefault("notifications.email.smtp.timeout", "10s")
	v.SetDefault("notifications.sms.enabled", false)
	v.SetDefault("notifications.sms.sender_id", "")
	v.SetDefault("notifications.whatsapp.enabled", false)
	v.SetDefault("notifications.whatsapp.account_sid", "")
	v.SetDefault("notifications.whatsapp.auth_token", "")
	v.SetDefault("notifications.whatsapp.from", "")
	v.SetDefault("notifications.whatsapp.timeout", "10s")
	v.SetDefault("notifications.aws.region", "us-east-1")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.hourly_schedule", "@hourly")
	v.SetDefault("scheduler.transition_schedule", "0 */6 * * *")
	v.SetDefault("scheduler.startup_delay", "5s")
	v.SetDefault("scheduler.distributed_lock", false)
	v.SetDefault("scheduler.lock_ttl", "30m")
	v.SetDefault("scheduler.day_before_hours", []int{7, 20})
	v.SetDefault("scheduler.due_today_hours", []int{6})
	v.SetDefault("scheduler.upcoming_from", "1h")
	v.SetDefault("scheduler.upcoming_until", "2h")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
