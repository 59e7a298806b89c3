package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/charlesng35/lifeadmin/internal/app"
	"github.com/charlesng35/lifeadmin/internal/app/scheduler"
	"github.com/charlesng35/lifeadmin/internal/lifecycle"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
)

type stubTrigger struct {
	report scheduler.Report
	err    error
	calls  int
}

func (s *stubTrigger) TriggerNow(context.Context) (scheduler.Report, error) {
	s.calls++
	return s.report, s.err
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload), w.Body.String())
	require.True(t, payload.Success)
	return payload.Data
}

func TestOperationsHandlerTrigger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	started := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	trigger := &stubTrigger{
		report: scheduler.Report{
			Trigger:    scheduler.TriggerManual,
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
			Sweeps: []scheduler.SweepReport{
				{Result: lifecycle.Result{Sweep: lifecycle.SweepTasksToInProgress, Found: 3, Updated: 3, Notified: 3}},
				{Result: lifecycle.Result{Sweep: lifecycle.SweepDueSoonAlert}, Error: "database unavailable"},
			},
		},
		err: multierr.Combine(errors.New("due-soon-alert: database unavailable")),
	}
	handler, err := NewOperationsHandler(trigger, &app.Config{})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/ops/reminders/trigger", nil)
	handler.TriggerReminders(ctx)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, trigger.calls)
	data := decodeData(t, w)

	report := data["report"].(map[string]any)
	require.Equal(t, "manual", report["trigger"])
	sweeps := report["sweeps"].([]any)
	require.Len(t, sweeps, 2)
	require.Equal(t, float64(3), sweeps[0].(map[string]any)["updated"])
	require.Equal(t, "database unavailable", sweeps[1].(map[string]any)["error"])
	require.Equal(t, []any{"due-soon-alert: database unavailable"}, data["failures"])
}

func TestOperationsHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mod, err := monitoring.NewModule(monitoring.Options{DisableGoCollector: true, DisableProcessCollector: true})
	require.NoError(t, err)
	monitoring.SetModule(mod)
	t.Cleanup(func() { monitoring.SetModule(nil) })

	monitoring.RecordSweep(monitoring.SweepRun{
		Sweep:    lifecycle.SweepOverdueTaskAlert,
		Result:   "success",
		Duration: 200 * time.Millisecond,
		Found:    2,
		Notified: 1,
	})
	monitoring.RecordNotification("TASK_REMINDER", "created")

	cfg := &app.Config{Monitoring: app.MonitoringConfig{
		Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		Health:     app.HealthConfig{Enabled: true, SweepMaxAge: 90 * time.Minute},
	}}
	handler, err := NewOperationsHandler(&stubTrigger{}, cfg)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/ops/reminders/status", nil)
	handler.Status(ctx)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	sweeps := data["sweeps"].([]any)
	require.Len(t, sweeps, 1)
	job := sweeps[0].(map[string]any)
	require.Equal(t, lifecycle.SweepOverdueTaskAlert, job["sweep"])
	require.Equal(t, "success", job["last_status"])
	require.Equal(t, float64(2), job["found"])
	require.Equal(t, float64(1), data["notifications"].(map[string]any)["created"])
	require.Equal(t, "1h30m0s", data["stale_after"])
	require.Equal(t, "/metrics", data["prometheus"].(map[string]any)["endpoint"])
}

func TestNewOperationsHandlerRequiresTrigger(t *testing.T) {
	_, err := NewOperationsHandler(nil, nil)
	require.Error(t, err)
}
