package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	authSuccess atomic.Uint64
	authFailure atomic.Uint64
	authError   atomic.Uint64

	notificationsCreated    atomic.Uint64
	notificationsSuppressed atomic.Uint64
	notificationsFailed     atomic.Uint64

	sweeps   sync.Map // string -> *sweepStats
	channels sync.Map // string -> *channelStats
}

func newStatStore() *statStore {
	return &statStore{}
}

func (s *statStore) cloneSweeps() []SweepJobSummary {
	summaries := []SweepJobSummary{}
	s.sweeps.Range(func(key, value any) bool {
		summaries = append(summaries, value.(*sweepStats).snapshot(key.(string)))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Sweep < summaries[j].Sweep })
	return summaries
}

func (s *statStore) cloneChannels() []ChannelSummary {
	summaries := []ChannelSummary{}
	s.channels.Range(func(key, value any) bool {
		stats := value.(*channelStats)
		summaries = append(summaries, ChannelSummary{
			Channel: key.(string),
			Success: stats.success.Load(),
			Failure: stats.failure.Load(),
		})
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Channel < summaries[j].Channel })
	return summaries
}

func (s *statStore) summary() Summary {
	return Summary{
		GeneratedAt: time.Now(),
		Auth: AuthSummary{
			Success: s.authSuccess.Load(),
			Failure: s.authFailure.Load(),
			Error:   s.authError.Load(),
		},
		Sweeps: SweepSummary{
			Jobs: s.cloneSweeps(),
		},
		Notifications: NotificationSummary{
			Created:    s.notificationsCreated.Load(),
			Suppressed: s.notificationsSuppressed.Load(),
			Failed:     s.notificationsFailed.Load(),
		},
		Channels: s.cloneChannels(),
	}
}

func (s *statStore) recordAuth(result string) {
	switch result {
	case "success":
		s.authSuccess.Add(1)
	case "failure":
		s.authFailure.Add(1)
	default:
		s.authError.Add(1)
	}
}

func (s *statStore) recordNotification(outcome string) {
	switch outcome {
	case "created":
		s.notificationsCreated.Add(1)
	case "suppressed":
		s.notificationsSuppressed.Add(1)
	default:
		s.notificationsFailed.Add(1)
	}
}

func (s *statStore) sweepEntry(sweep string) *sweepStats {
	value, ok := s.sweeps.Load(sweep)
	if ok {
		return value.(*sweepStats)
	}
	actual, _ := s.sweeps.LoadOrStore(sweep, &sweepStats{})
	return actual.(*sweepStats)
}

func (s *statStore) channelEntry(channel string) *channelStats {
	value, ok := s.channels.Load(channel)
	if ok {
		return value.(*channelStats)
	}
	actual, _ := s.channels.LoadOrStore(channel, &channelStats{})
	return actual.(*channelStats)
}

type channelStats struct {
	success atomic.Uint64
	failure atomic.Uint64
}

func (c *channelStats) record(result string) {
	if result == "success" {
		c.success.Add(1)
		return
	}
	c.failure.Add(1)
}

type sweepStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	lastSuccessfulRun    atomic.Int64
	consecutiveFailures  atomic.Uint64
	consecutiveSuccesses atomic.Uint64
	totalRuns            atomic.Uint64
	skipped              atomic.Uint64

	found    atomic.Uint64
	updated  atomic.Uint64
	notified atomic.Uint64
	errors   atomic.Uint64
}

func (m *sweepStats) snapshot(sweep string) SweepJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)

	out := SweepJobSummary{
		Sweep:               sweep,
		LastStatus:          status,
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		ConsecutiveSuccess:  m.consecutiveSuccesses.Load(),
		TotalRuns:           m.totalRuns.Load(),
		Skipped:             m.skipped.Load(),
		Found:               m.found.Load(),
		Updated:             m.updated.Load(),
		Notified:            m.notified.Load(),
		Errors:              m.errors.Load(),
	}
	if ts := m.lastRun.Load(); ts > 0 {
		out.LastRunAt = time.Unix(0, ts)
	}
	if ts := m.lastSuccessfulRun.Load(); ts > 0 {
		out.LastSuccessAt = time.Unix(0, ts)
	}
	return out
}

func (m *sweepStats) record(result, message string, run SweepRun) {
	duration := run.Duration
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)
	m.found.Add(uint64(max(run.Found, 0)))
	m.updated.Add(uint64(max(run.Updated, 0)))
	m.notified.Add(uint64(max(run.Notified, 0)))
	m.errors.Add(uint64(max(run.Errors, 0)))

	switch result {
	case "success":
		m.consecutiveFailures.Store(0)
		m.consecutiveSuccesses.Add(1)
		m.lastSuccessfulRun.Store(now.UnixNano())
	default:
		m.consecutiveFailures.Add(1)
		m.consecutiveSuccesses.Store(0)
	}
}
