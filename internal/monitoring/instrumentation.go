package monitoring

import (
	"strings"
	"time"
)

// SweepRun describes one completed sweep invocation.
type SweepRun struct {
	Sweep    string
	Result   string
	Message  string
	Duration time.Duration
	Found    int
	Updated  int
	Notified int
	Errors   int
}

// The Record helpers below are no-ops until SetModule installs a module.
func withModule(fn func(m *Module)) {
	if m := active.Load(); m != nil {
		fn(m)
	}
}

func RecordAuthAttempt(result string) {
	withModule(func(m *Module) {
		result := label(result)
		m.metrics.authAttempts.WithLabelValues(result).Inc()
		m.stats.recordAuth(result)
	})
}

// ObserveAPILatency records one request against its route template.
func ObserveAPILatency(method, path, status string, duration time.Duration) {
	withModule(func(m *Module) {
		m.metrics.apiLatency.
			WithLabelValues(
				labelOr(strings.ToUpper(strings.TrimSpace(method)), "UNKNOWN"),
				labelOr(routeLabel(path), "unknown"),
				labelOr(strings.TrimSpace(status), "unknown"),
			).
			Observe(max(duration, 0).Seconds())
	})
}

// RecordSweep records a finished sweep: run counter, duration, entity counts and, on
// success, the last-success timestamp.
func RecordSweep(run SweepRun) {
	withModule(func(m *Module) {
		sweep, result := label(run.Sweep), label(run.Result)

		m.metrics.sweepRuns.WithLabelValues(sweep, result).Inc()
		observeDuration(m.metrics.sweepDuration.WithLabelValues(sweep), run.Duration)
		if result == "success" {
			m.metrics.sweepLastSuccess.WithLabelValues(sweep).SetToCurrentTime()
		}
		for outcome, n := range map[string]int{
			"found":    run.Found,
			"updated":  run.Updated,
			"notified": run.Notified,
			"failed":   run.Errors,
		} {
			if n > 0 {
				m.metrics.sweepEntities.WithLabelValues(sweep, outcome).Add(float64(n))
			}
		}

		m.stats.sweepEntry(sweep).record(result, strings.TrimSpace(run.Message), run)
	})
}

// RecordSweepSkipped counts a sweep invocation that lost the reentrancy lock.
func RecordSweepSkipped(sweep string) {
	withModule(func(m *Module) {
		sweep := label(sweep)
		m.metrics.sweepSkipped.WithLabelValues(sweep).Inc()
		m.stats.sweepEntry(sweep).skipped.Add(1)
	})
}

// RecordSchedulerTick counts ticks by trigger (hourly, transitions, startup, manual).
func RecordSchedulerTick(tick, result string) {
	withModule(func(m *Module) {
		m.metrics.schedulerTicks.WithLabelValues(label(tick), label(result)).Inc()
	})
}

func RecordNotification(notificationType, outcome string) {
	withModule(func(m *Module) {
		outcome := label(outcome)
		m.metrics.notifications.WithLabelValues(label(notificationType), outcome).Inc()
		m.stats.recordNotification(outcome)
	})
}

// RecordDispatch counts one delivery attempt on a channel.
func RecordDispatch(channel, result string) {
	withModule(func(m *Module) {
		channel, result := label(channel), label(result)
		m.metrics.dispatchAttempts.WithLabelValues(channel, result).Inc()
		m.stats.channelEntry(channel).record(result)
	})
}

func label(value string) string {
	return labelOr(strings.ToLower(strings.TrimSpace(value)), "unknown")
}

func labelOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// routeLabel turns "/api/tasks/:id" into "api/tasks/:id"; the bare root becomes "root".
func routeLabel(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	path = strings.ReplaceAll(strings.Trim(path, "/"), " ", "_")
	return labelOr(path, "root")
}
