package monitoring

import (
	"net/http"
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const defaultNamespace = "lifeadmin"

// Options tune a Module. The zero value registers every collector under the lifeadmin namespace.
type Options struct {
	Namespace string
	// Version is exported through the build_info gauge. Empty means "dev".
	Version string

	DisableGoCollector      bool
	DisableProcessCollector bool
}

// Module owns a private Prometheus registry together with the health probes and the
// in-memory sweep summary served by the status endpoint.
type Module struct {
	registry *prometheus.Registry
	metrics  *collectors
	stats    *statStore
	health   *HealthManager
}

// NewModule builds a Module and registers its collectors. Registration errors are combined so
// a misconfigured namespace reports every clash at once.
func NewModule(opts Options) (*Module, error) {
	if opts.Namespace == "" {
		opts.Namespace = defaultNamespace
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	registry := prometheus.NewRegistry()
	metrics := newCollectors(opts.Namespace)

	toRegister := append(metrics.all(), buildInfo(opts))
	if !opts.DisableGoCollector {
		toRegister = append(toRegister, prometheus.NewGoCollector())
	}
	if !opts.DisableProcessCollector {
		toRegister = append(toRegister, prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}

	var err error
	for _, c := range toRegister {
		err = multierr.Append(err, registry.Register(c))
	}
	if err != nil {
		return nil, err
	}

	return &Module{
		registry: registry,
		metrics:  metrics,
		stats:    newStatStore(),
		health:   NewHealthManager(),
	}, nil
}

func buildInfo(opts Options) prometheus.Collector {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: opts.Namespace,
		Name:      "build_info",
		Help:      "Build metadata for the running reminder engine",
		ConstLabels: prometheus.Labels{
			"version":   opts.Version,
			"goversion": runtime.Version(),
		},
	})
	gauge.Set(1)
	return gauge
}

// Handler serves the module's registry in the Prometheus exposition format. A nil module
// answers 503 so a disabled monitoring stack is visible to scrapers.
func (m *Module) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:      m.registry,
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Health returns the probe manager behind /health and /health/ready.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

var active atomic.Pointer[Module]

// SetModule installs the process-wide module read by the Record* helpers. Passing nil turns
// them into no-ops.
func SetModule(module *Module) {
	active.Store(module)
}

// CurrentModule returns the installed module, or nil.
func CurrentModule() *Module {
	return active.Load()
}
