package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ProbeStatus is the outcome of one probe, ordered up < degraded < down.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDegraded ProbeStatus = "degraded"
	StatusDown     ProbeStatus = "down"
)

func (s ProbeStatus) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// ProbeResult is one component's answer.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport is the worst status across its checks. Success is true only when every
// check is up.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Check is a named probe. A positive Timeout bounds the context passed to Run.
type Check struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) ProbeResult
}

// NewCheck wraps fn as a Check. A nil fn always reports down.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

type probeKind int

const (
	liveness probeKind = iota
	readiness
)

// HealthManager holds the liveness and readiness probe sets. Probes in a set run
// concurrently and results keep registration order.
type HealthManager struct {
	mu     sync.RWMutex
	probes map[probeKind][]Check
}

func NewHealthManager() *HealthManager {
	return &HealthManager{probes: make(map[probeKind][]Check, 2)}
}

// RegisterLiveness adds a probe that says whether the process itself is serviceable.
func (m *HealthManager) RegisterLiveness(check Check) { m.register(liveness, check) }

// RegisterReadiness adds a probe for a dependency the sweeps and API need.
func (m *HealthManager) RegisterReadiness(check Check) { m.register(readiness, check) }

func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	return m.evaluate(ctx, liveness)
}

func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	return m.evaluate(ctx, readiness)
}

func (m *HealthManager) register(kind probeKind, check Check) {
	if check.Name == "" || check.Run == nil {
		return
	}
	m.mu.Lock()
	m.probes[kind] = append(m.probes[kind], check)
	m.mu.Unlock()
}

func (m *HealthManager) evaluate(ctx context.Context, kind probeKind) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.RLock()
	probes := append([]Check(nil), m.probes[kind]...)
	m.mu.RUnlock()

	results := make([]ProbeResult, len(probes))
	var wg sync.WaitGroup
	for i, check := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runCheck(ctx, check)
		}()
	}
	wg.Wait()

	report := HealthReport{Status: StatusUp, Checks: results}
	for _, r := range results {
		if r.Status.severity() > report.Status.severity() {
			report.Status = r.Status
		}
	}
	report.Success = report.Status == StatusUp
	return report
}

// runCheck executes one probe, converting a panic into a down result.
func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	if check.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, check.Timeout)
		defer cancel()
	}
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: panicDetails(rec)}
		}
		result.Component = check.Name
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
	}()

	return check.Run(ctx)
}

func panicDetails(rec any) string {
	switch v := rec.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// ResultFromError maps err to a result. Context expiry counts as degraded since the
// dependency may only be slow; any other error is down.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	result := ProbeResult{Component: component, Status: StatusUp, Duration: max(duration, 0)}
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		result.Status = StatusDegraded
		result.Details = err.Error()
	default:
		result.Status = StatusDown
		result.Details = err.Error()
	}
	return result
}
