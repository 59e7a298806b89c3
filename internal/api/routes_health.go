package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/lifeadmin/internal/app"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
)

var healthPaths = []string{"/health", "/health/live", "/health/ready"}

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	manager := mon.Health()
	if !cfg.Monitoring.Health.Enabled || manager == nil {
		for _, path := range healthPaths {
			r.GET(path, disabledHealthHandler)
		}
		return
	}

	// /health is the short liveness answer for load balancers; the other two carry per-check detail.
	r.GET("/health", healthHandler(manager.EvaluateLiveness, false))
	r.GET("/health/live", healthHandler(manager.EvaluateLiveness, true))
	r.GET("/health/ready", healthHandler(manager.EvaluateReadiness, true))
}

func healthHandler(evaluate func(context.Context) monitoring.HealthReport, detailed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := evaluate(c.Request.Context())

		body := gin.H{
			"success":    report.Success,
			"status":     report.Status,
			"checked_at": time.Now().UTC(),
		}
		if detailed {
			body["checks"] = report.Checks
			if last := lastSweepAt(); !last.IsZero() {
				body["last_sweep_at"] = last.UTC()
			}
		}

		status := http.StatusOK
		if !report.Success {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, body)
	}
}

// lastSweepAt is the most recent run of any sweep, zero before the first run.
func lastSweepAt() time.Time {
	var last time.Time
	for _, job := range monitoring.Snapshot().Sweeps.Jobs {
		if job.LastRunAt.After(last) {
			last = job.LastRunAt
		}
	}
	return last
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
