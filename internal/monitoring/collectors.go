package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	authAttempts     *prometheus.CounterVec
	apiLatency       *prometheus.HistogramVec
	sweepRuns        *prometheus.CounterVec
	sweepDuration    *prometheus.HistogramVec
	sweepLastSuccess *prometheus.GaugeVec
	sweepEntities    *prometheus.CounterVec
	sweepSkipped     *prometheus.CounterVec
	schedulerTicks   *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	dispatchAttempts *prometheus.CounterVec
}

func newCollectors(namespace string) *collectors {
	buckets := prometheus.DefBuckets
	sweepBuckets := []float64{
		0.01, 0.05, 0.1, 0.5, // sub-second
		1, 5, 15, 30, 60,
		300,
	}

	return &collectors{
		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Total number of token validations on the API",
			},
			[]string{"result"},
		),
		apiLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_latency_seconds",
				Help:      "API endpoint latency",
				Buckets:   buckets,
			},
			[]string{"method", "path", "status"},
		),
		sweepRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_runs_total",
				Help:      "Sweep executions grouped by result",
			},
			[]string{"sweep", "result"},
		),
		sweepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sweep_duration_seconds",
				Help:      "Sweep duration",
				Buckets:   sweepBuckets,
			},
			[]string{"sweep"},
		),
		sweepLastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sweep_last_success_timestamp",
				Help:      "Timestamp of the last successful sweep (seconds since epoch)",
			},
			[]string{"sweep"},
		),
		sweepEntities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_entities_total",
				Help:      "Entities processed by sweeps grouped by outcome",
			},
			[]string{"sweep", "outcome"},
		),
		sweepSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_skipped_total",
				Help:      "Sweep invocations skipped because a previous run still held the lock",
			},
			[]string{"sweep"},
		),
		schedulerTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_ticks_total",
				Help:      "Scheduler ticks grouped by trigger and result",
			},
			[]string{"tick", "result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notifications grouped by type and outcome (created, suppressed, failed)",
			},
			[]string{"type", "outcome"},
		),
		dispatchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_attempts_total",
				Help:      "Channel delivery attempts grouped by result",
			},
			[]string{"channel", "result"},
		),
	}
}

func (c *collectors) all() []prometheus.Collector {
	return []prometheus.Collector{
		c.authAttempts,
		c.apiLatency,
		c.sweepRuns,
		c.sweepDuration,
		c.sweepLastSuccess,
		c.sweepEntities,
		c.sweepSkipped,
		c.schedulerTicks,
		c.notifications,
		c.dispatchAttempts,
	}
}

// observeDuration records a duration in seconds on the supplied histogram observer.
func observeDuration(observer prometheus.Observer, d time.Duration) {
	if observer == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	observer.Observe(d.Seconds())
}
