package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/lifeadmin/internal/app"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	return &app.Config{
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "lifeadmin.db"),
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Auth: app.AuthConfig{JWT: app.JWTSettings{Secret: "bootstrap-secret"}},
		Scheduler: app.SchedulerConfig{
			Timezone: "UTC",
		},
	}
}

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Router)
	require.NotNil(t, stack.Scheduler)
	require.Nil(t, stack.Redis)
	require.Same(t, stack.Monitoring, monitoring.CurrentModule())

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRunOnceSweepsEmptyDatabase(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NoError(t, runOnce(context.Background(), stack.Scheduler, zap.NewNop()))
	require.NotEmpty(t, monitoring.Snapshot().Sweeps.Jobs)
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-config", "/etc/lifeadmin", "-once"})
	require.NoError(t, err)
	require.Equal(t, "/etc/lifeadmin", opts.configPath)
	require.True(t, opts.once)

	opts, err = parseFlags(nil)
	require.NoError(t, err)
	require.False(t, opts.once)

	_, err = parseFlags([]string{"-bogus"})
	require.Error(t, err)
}

func TestBootstrapRuntimeRejectsUnknownTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Timezone = "Mars/Olympus_Mons"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "timezone")
}

func TestBuildDispatcher(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	dispatcher, err := buildDispatcher(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, dispatcher)

	cfg.Notifications.Email = app.EmailConfig{
		Provider: "smtp",
		From:     "reminders@example.com",
		SMTP:     app.SMTPConfig{Host: "smtp.example.com", Port: 587},
	}
	dispatcher, err = buildDispatcher(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, dispatcher)

	cfg.Notifications.Email.SMTP.Host = ""
	_, err = buildDispatcher(ctx, cfg, zap.NewNop())
	require.Error(t, err)

	cfg.Notifications.Email = app.EmailConfig{Provider: "pigeon"}
	_, err = buildDispatcher(ctx, cfg, zap.NewNop())
	require.ErrorContains(t, err, "unsupported email provider")

	cfg.Notifications.Email = app.EmailConfig{}
	cfg.Notifications.WhatsApp = app.WhatsAppConfig{Enabled: true, AccountSID: "AC123", AuthToken: "token"}
	_, err = buildDispatcher(ctx, cfg, zap.NewNop())
	require.ErrorContains(t, err, "from number")
}

func TestEnsureSecretsPresent(t *testing.T) {
	require.Error(t, ensureSecretsPresent(nil))

	cfg := &app.Config{}
	require.ErrorContains(t, ensureSecretsPresent(cfg), "auth.jwt.secret")

	cfg.Auth.JWT.Secret = "  secret  "
	require.NoError(t, ensureSecretsPresent(cfg))
	require.Equal(t, "secret", cfg.Auth.JWT.Secret)

	cfg.Notifications.WhatsApp.Enabled = true
	require.ErrorContains(t, ensureSecretsPresent(cfg), "whatsapp")
}

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{}
	require.Equal(t, "sqlite", convertDatabaseConfig(cfg).Driver)

	cfg.Database.Driver = " PostgreSQL "
	cfg.Database.Postgres = app.DBAuthConfig{Host: "db", Port: 5432, Database: "lifeadmin", Username: "app", Password: "pw"}
	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "lifeadmin", dbCfg.Name)
	require.Equal(t, "app", dbCfg.User)

	cfg.Database.Driver = "mysql"
	cfg.Database.MySQL = app.DBAuthConfig{Host: "mysql", Port: 3306, Database: "la"}
	dbCfg = convertDatabaseConfig(cfg)
	require.Equal(t, "mysql", dbCfg.Driver)
	require.Equal(t, "mysql", dbCfg.Host)
	require.Equal(t, 3306, dbCfg.Port)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")
}
