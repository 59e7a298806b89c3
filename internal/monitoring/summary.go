package monitoring

import "time"

// Summary surfaces aggregated monitoring data for the operations endpoints.
type Summary struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	Auth          AuthSummary         `json:"auth"`
	Sweeps        SweepSummary        `json:"sweeps"`
	Notifications NotificationSummary `json:"notifications"`
	Channels      []ChannelSummary    `json:"channels"`
}

type AuthSummary struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
	Error   uint64 `json:"error"`
}

type SweepSummary struct {
	Jobs []SweepJobSummary `json:"jobs"`
}

// SweepJobSummary aggregates every recorded run of a single sweep.
type SweepJobSummary struct {
	Sweep               string        `json:"sweep"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
	Skipped             uint64        `json:"skipped"`
	Found               uint64        `json:"found"`
	Updated             uint64        `json:"updated"`
	Notified            uint64        `json:"notified"`
	Errors              uint64        `json:"errors"`
}

type NotificationSummary struct {
	Created    uint64 `json:"created"`
	Suppressed uint64 `json:"suppressed"`
	Failed     uint64 `json:"failed"`
}

type ChannelSummary struct {
	Channel string `json:"channel"`
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	if module := active.Load(); module != nil && module.stats != nil {
		return module.stats.summary()
	}
	return Summary{GeneratedAt: time.Now()}
}
