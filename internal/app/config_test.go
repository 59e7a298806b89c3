package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/lifeadmin/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "console", cfg.Server.LogFormat)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.Equal(t, 90*time.Minute, cfg.Monitoring.Health.SweepMaxAge)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "lifeadmin-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	notifications := cfg.Notifications
	require.Equal(t, "Household", notifications.Branding.AppName)
	require.Equal(t, "smtp", notifications.Email.ProviderName())
	require.Equal(t, "reminders@example.com", notifications.Email.From)
	require.Equal(t, 2525, notifications.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, notifications.Email.SMTP.Timeout)
	require.True(t, notifications.SMS.Enabled)
	require.Equal(t, "LIFEADMIN", notifications.SMS.SenderID)
	require.True(t, notifications.WhatsApp.Enabled)
	require.Equal(t, "+15550001111", notifications.WhatsApp.From)
	require.Equal(t, 10*time.Second, notifications.WhatsApp.Timeout)
	require.Equal(t, "eu-west-1", notifications.AWS.Region)
	require.True(t, notifications.UsesAWS())

	sched := cfg.Scheduler
	require.True(t, sched.Enabled)
	require.Equal(t, "Europe/London", sched.Timezone)
	require.Equal(t, "5 * * * *", sched.HourlySchedule)
	require.Equal(t, "0 */6 * * *", sched.TransitionSchedule)
	require.Equal(t, 10*time.Second, sched.StartupDelay)
	require.True(t, sched.DistributedLock)
	require.Equal(t, 45*time.Minute, sched.LockTTL)
	require.Equal(t, []int{8, 19}, sched.DayBeforeHours)
	require.Equal(t, []int{7}, sched.DueTodayHours)
	require.Equal(t, 30*time.Minute, sched.UpcomingFrom)
	require.Equal(t, 90*time.Minute, sched.UpcomingUntil)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "lifeadmin", cfg.Cache.Redis.KeyPrefix)
	require.Equal(t, 30*time.Second, cfg.Auth.JWT.Leeway)
	require.Equal(t, "", cfg.Notifications.Email.ProviderName())
	require.False(t, cfg.Notifications.UsesAWS())
	require.Equal(t, "@hourly", cfg.Scheduler.HourlySchedule)
	require.Equal(t, 5*time.Second, cfg.Scheduler.StartupDelay)
	require.Equal(t, []int{7, 20}, cfg.Scheduler.DayBeforeHours)
	require.Equal(t, []int{6}, cfg.Scheduler.DueTodayHours)
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("LIFEADMIN_SERVER_PORT", "7070")
	t.Setenv("LIFEADMIN_SCHEDULER_DAY_BEFORE_HOURS", "9,21")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, []int{9, 21}, cfg.Scheduler.DayBeforeHours)
}

func TestLoadConfigRejectsInvalidScheduler(t *testing.T) {
	t.Setenv("LIFEADMIN_SCHEDULER_HOURLY_SCHEDULE", "every hour")
	t.Setenv("LIFEADMIN_SCHEDULER_DUE_TODAY_HOURS", "6,24")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "scheduler.hourly_schedule failed on cronspec")
	require.Contains(t, err.Error(), "scheduler.due_today_hours[1] failed on max=23")
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LIFEADMIN_AUTH_JWT_SECRET=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LIFEADMIN_AUTH_JWT_SECRET") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.Auth.JWT.Secret)
}

func TestAuthConfigAdapter(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: " secret ", Issuer: "issuer", TTL: 30 * time.Minute, Leeway: time.Minute}}
	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
		Leeway:         time.Minute,
	}, cfg.JWTServiceConfig())

	var empty AuthConfig
	svc, err := auth.NewJWTService(AuthConfig{JWT: JWTSettings{Secret: "s"}}.JWTServiceConfig())
	require.NoError(t, err)
	require.NotNil(t, svc)
	require.Zero(t, empty.JWTServiceConfig().AccessTokenTTL)
}

func TestNotificationConfigAdapters(t *testing.T) {
	cfg := NotificationsConfig{
		Branding: BrandingConfig{AppName: "Home", DashboardURL: " https://home.example.com "},
		Email: EmailConfig{
			Provider: "ses",
			From:     "no-reply@example.com",
			SMTP:     SMTPConfig{Host: "smtp.example.com", Port: 25},
		},
		WhatsApp: WhatsAppConfig{AccountSID: " AC1 ", AuthToken: "tok", From: "+1555", Timeout: time.Second},
	}

	require.Equal(t, "https://home.example.com", cfg.BrandingSettings().DashboardURL)
	require.True(t, cfg.UsesAWS())

	smtp := cfg.Email.SMTPSettings()
	require.False(t, smtp.Enabled)
	require.Equal(t, "no-reply@example.com", smtp.From)
	require.Equal(t, 25, smtp.Port)

	cfg.Email.Provider = " SMTP "
	require.True(t, cfg.Email.SMTPSettings().Enabled)
	require.False(t, cfg.UsesAWS())

	twilio := cfg.WhatsApp.TwilioSettings()
	require.Equal(t, "AC1", twilio.AccountSID)
	require.Equal(t, "tok", twilio.AuthToken)
	require.Equal(t, time.Second, twilio.Timeout)
}

func TestCacheConfigAdapter(t *testing.T) {
	cfg := CacheConfig{Redis: RedisCacheConfig{Address: " localhost:6379 ", DB: 3, Timeout: time.Second, KeyPrefix: " household "}}
	redisCfg := cfg.RedisClientConfig()
	require.Equal(t, "localhost:6379", redisCfg.Address)
	require.Equal(t, "household", redisCfg.KeyPrefix)
	require.Equal(t, 3, redisCfg.DB)
	require.Equal(t, time.Second, redisCfg.Timeout)
}

func TestSchedulerConfigLocation(t *testing.T) {
	loc, err := SchedulerConfig{}.Location()
	require.NoError(t, err)
	require.Equal(t, time.Local, loc)

	loc, err = SchedulerConfig{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	require.Equal(t, "UTC", loc.String())

	_, err = SchedulerConfig{Timezone: "Mars/Olympus"}.Location()
	require.Error(t, err)
}

func TestSchedulerConfigOptions(t *testing.T) {
	cfg := SchedulerConfig{
		DayBeforeHours: []int{8},
		UpcomingFrom:   time.Hour,
		UpcomingUntil:  30 * time.Minute,
	}
	// Location plus day-before; the inverted upcoming window is ignored.
	require.Len(t, cfg.LifecycleOptions(time.UTC), 2)
	require.Len(t, cfg.SchedulerOptions(time.UTC), 5)
}
