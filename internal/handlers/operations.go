package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/lifeadmin/internal/app"
	"github.com/charlesng35/lifeadmin/internal/app/scheduler"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
	"github.com/charlesng35/lifeadmin/pkg/logger"
	"github.com/charlesng35/lifeadmin/pkg/response"
)

// ReminderTrigger runs every sweep once on demand.
type ReminderTrigger interface {
	TriggerNow(ctx context.Context) (scheduler.Report, error)
}

// OperationsHandler lets administrators trigger sweeps and inspect their recent outcomes.
type OperationsHandler struct {
	trigger ReminderTrigger
	cfg     *app.Config
	log     *zap.Logger
}

// NewOperationsHandler constructs an operations handler.
func NewOperationsHandler(trigger ReminderTrigger, cfg *app.Config) (*OperationsHandler, error) {
	if trigger == nil {
		return nil, errors.New("operations handler: trigger is required")
	}
	if cfg == nil {
		cfg = &app.Config{}
	}
	return &OperationsHandler{trigger: trigger, cfg: cfg, log: logger.WithModule("operations")}, nil
}

// TriggerReminders runs the full sweep sequence synchronously and returns the run report.
// Individual sweep failures are reported in the body; the request itself still succeeds.
func (h *OperationsHandler) TriggerReminders(c *gin.Context) {
	// Sweeps run to completion even if the caller disconnects.
	ctx := context.WithoutCancel(requestContext(c))

	report, err := h.trigger.TriggerNow(ctx)
	failures := make([]string, 0)
	for _, sweepErr := range multierr.Errors(err) {
		failures = append(failures, sweepErr.Error())
	}
	if err != nil {
		h.log.Warn("manual reminder trigger finished with errors", zap.Error(err))
	}

	response.Success(c, http.StatusOK, gin.H{
		"report":   report,
		"failures": failures,
	})
}

// Status returns the per-sweep summaries recorded by monitoring.
func (h *OperationsHandler) Status(c *gin.Context) {
	snapshot := monitoring.Snapshot()
	endpoint := strings.TrimSpace(h.cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}

	response.Success(c, http.StatusOK, gin.H{
		"generated_at":  snapshot.GeneratedAt,
		"sweeps":        snapshot.Sweeps.Jobs,
		"notifications": snapshot.Notifications,
		"channels":      snapshot.Channels,
		"stale_after":   h.staleAfter().String(),
		"prometheus": gin.H{
			"enabled":  h.cfg.Monitoring.Prometheus.Enabled,
			"endpoint": endpoint,
		},
	})
}

func (h *OperationsHandler) staleAfter() time.Duration {
	if age := h.cfg.Monitoring.Health.SweepMaxAge; age > 0 {
		return age
	}
	return 2 * time.Hour
}
