package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/lifeadmin/internal/monitoring"
)

const defaultSweepMaxAge = 2 * time.Hour

// Sweeps reports whether every recorded sweep has run recently and without repeated failures.
// A sweep that failed once is degraded; three consecutive failures mark it down.
func Sweeps(maxAge time.Duration, now func() time.Time) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultSweepMaxAge
	}
	if now == nil {
		now = time.Now
	}

	return monitoring.NewCheck("sweeps", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		summary := monitoring.Snapshot()
		current := now()

		if len(summary.Sweeps.Jobs) == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "no sweeps recorded yet",
				Duration: time.Since(start),
			}
		}

		status := monitoring.StatusUp
		var problems []string

		for _, job := range summary.Sweeps.Jobs {
			if job.TotalRuns == 0 {
				continue
			}

			switch {
			case job.ConsecutiveFailures >= 3:
				status = worstStatus(status, monitoring.StatusDown)
				problems = append(problems, job.Sweep+": consecutive failures")
			case job.ConsecutiveFailures > 0:
				status = worstStatus(status, monitoring.StatusDegraded)
				problems = append(problems, job.Sweep+": last run failed")
			}

			if !job.LastRunAt.IsZero() && current.Sub(job.LastRunAt) > maxAge {
				status = worstStatus(status, monitoring.StatusDegraded)
				problems = append(problems, job.Sweep+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(problems, "; "),
			Duration: time.Since(start),
		}
	})
}

func worstStatus(current, candidate monitoring.ProbeStatus) monitoring.ProbeStatus {
	if current == monitoring.StatusDown || candidate == monitoring.StatusDown {
		return monitoring.StatusDown
	}
	if current == monitoring.StatusDegraded || candidate == monitoring.StatusDegraded {
		return monitoring.StatusDegraded
	}
	return monitoring.StatusUp
}
