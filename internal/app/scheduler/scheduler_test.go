package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/lifeadmin/internal/lifecycle"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
)

type recordingSweeper struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	panics  map[string]bool
	block   chan struct{}
	entered chan string
}

func newRecordingSweeper() *recordingSweeper {
	return &recordingSweeper{fail: map[string]error{}, panics: map[string]bool{}}
}

func (r *recordingSweeper) record(name string) (lifecycle.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	block, entered := r.block, r.entered
	err := r.fail[name]
	shouldPanic := r.panics[name]
	r.mu.Unlock()

	if entered != nil {
		entered <- name
	}
	if block != nil {
		<-block
	}
	if shouldPanic {
		panic("boom")
	}
	if err != nil {
		return lifecycle.Result{Sweep: name}, err
	}
	return lifecycle.Result{Sweep: name, Found: 2, Updated: 1, Notified: 1}, nil
}

func (r *recordingSweeper) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingSweeper) PromoteDueTasks(context.Context) (lifecycle.Result, error) {
	return r.record(lifecycle.SweepTasksToInProgress)
}

func (r *recordingSweeper) CompleteOverdueTasks(context.Context) (lifecycle.Result, error) {
	return r.record(lifecycle.SweepOverdueTasksToCompleted)
}

func (r *recordingSweeper) ConfirmAppointments(context.Context) (lifecycle.Result, error) {
	return r.record(lifecycle.SweepAppointmentsToConfirmed)
}

func (r *recordingSweeper) CompleteAppointments(context.Context) (lifecycle.Result, error) {
	return r.record(lifecycle.SweepAppointmentsToCompleted)
}

func (r *recordingSweeper) AlertOverdueTasks(context.Context) (lifecycle.Result, error) {
	return r.record(lifecycle.SweepOverdueTaskAlert)
}

func (r *recordingSweeper) AlertTasksDueSoon(context.Context) (lifecycle.Result, error) {
	return r.record(lifecycle.SweepDueSoonAlert)
}

func (r *recordingSweeper) AlertUpcomingAppointments(context.Context) (lifecycle.Result, error) {
	return r.record(lifecycle.SweepUpcomingAppointmentAlert)
}

func (r *recordingSweeper) RemindDayBefore(context.Context) (lifecycle.Result, error) {
	return r.record(lifecycle.SweepDayBeforeReminder)
}

func (r *recordingSweeper) RemindDueToday(context.Context) (lifecycle.Result, error) {
	return r.record(lifecycle.SweepDueTodayReminder)
}

var hourlyOrder = []string{
	lifecycle.SweepOverdueTasksToCompleted,
	lifecycle.SweepAppointmentsToConfirmed,
	lifecycle.SweepAppointmentsToCompleted,
	lifecycle.SweepOverdueTaskAlert,
	lifecycle.SweepDueSoonAlert,
	lifecycle.SweepUpcomingAppointmentAlert,
	lifecycle.SweepDayBeforeReminder,
	lifecycle.SweepDueTodayReminder,
}

func installMonitoring(t *testing.T) {
	t.Helper()
	module, err := monitoring.NewModule(monitoring.Options{DisableGoCollector: true, DisableProcessCollector: true})
	require.NoError(t, err)
	monitoring.SetModule(module)
	t.Cleanup(func() { monitoring.SetModule(nil) })
}

func newTestScheduler(t *testing.T, sweeper Sweeper, opts ...Option) *Scheduler {
	t.Helper()
	base := []Option{
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
		WithNow(func() time.Time { return time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC) }),
	}
	s, err := New(sweeper, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func TestTriggerNowRunsEverySweepInOrder(t *testing.T) {
	installMonitoring(t)
	sweeper := newRecordingSweeper()
	s := newTestScheduler(t, sweeper)

	report, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, TriggerManual, report.Trigger)

	expected := append([]string{lifecycle.SweepTasksToInProgress}, hourlyOrder...)
	require.Equal(t, expected, sweeper.Calls())
	require.Len(t, report.Sweeps, len(expected))
	for i, sr := range report.Sweeps {
		require.Equal(t, expected[i], sr.Sweep)
		require.Empty(t, sr.Error)
		require.Equal(t, 1, sr.Updated)
	}

	summary := monitoring.Snapshot()
	require.Len(t, summary.Sweeps.Jobs, len(expected))
	for _, job := range summary.Sweeps.Jobs {
		require.Equal(t, "success", job.LastStatus)
		require.Equal(t, uint64(1), job.TotalRuns)
	}
}

func TestRunHourlyAndTransitionsUseTheirPlans(t *testing.T) {
	sweeper := newRecordingSweeper()
	s := newTestScheduler(t, sweeper)

	_, err := s.RunHourly(context.Background())
	require.NoError(t, err)
	require.Equal(t, hourlyOrder, sweeper.Calls())

	sweeper = newRecordingSweeper()
	s = newTestScheduler(t, sweeper)
	report, err := s.RunTransitions(context.Background())
	require.NoError(t, err)
	require.Equal(t, TriggerTransitions, report.Trigger)
	require.Equal(t, []string{lifecycle.SweepTasksToInProgress}, sweeper.Calls())
}

func TestFailingSweepDoesNotStopTheRun(t *testing.T) {
	installMonitoring(t)
	sweeper := newRecordingSweeper()
	sweeper.fail[lifecycle.SweepAppointmentsToConfirmed] = errors.New("database unavailable")
	sweeper.panics[lifecycle.SweepDueSoonAlert] = true
	s := newTestScheduler(t, sweeper)

	report, err := s.RunHourly(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "appointments-to-confirmed: database unavailable")
	require.ErrorContains(t, err, "due-soon-alert: panic: boom")
	require.Equal(t, hourlyOrder, sweeper.Calls())

	byName := map[string]SweepReport{}
	for _, sr := range report.Sweeps {
		byName[sr.Sweep] = sr
	}
	require.Equal(t, "database unavailable", byName[lifecycle.SweepAppointmentsToConfirmed].Error)
	require.Empty(t, byName[lifecycle.SweepDueTodayReminder].Error)

	for _, job := range monitoring.Snapshot().Sweeps.Jobs {
		switch job.Sweep {
		case lifecycle.SweepAppointmentsToConfirmed, lifecycle.SweepDueSoonAlert:
			require.Equal(t, "failure", job.LastStatus)
			require.Equal(t, uint64(1), job.ConsecutiveFailures)
		default:
			require.Equal(t, "success", job.LastStatus)
		}
	}
}

func TestOverlappingRunSkipsHeldSweep(t *testing.T) {
	installMonitoring(t)
	sweeper := newRecordingSweeper()
	release := make(chan struct{})
	sweeper.block = release
	sweeper.entered = make(chan string, 16)
	s := newTestScheduler(t, sweeper)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunTransitions(context.Background())
	}()
	require.Equal(t, lifecycle.SweepTasksToInProgress, <-sweeper.entered)

	sweeper.mu.Lock()
	sweeper.block = nil
	sweeper.entered = nil
	sweeper.mu.Unlock()

	report, err := s.RunTransitions(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sweeps, 1)
	require.True(t, report.Sweeps[0].Skipped)
	require.Equal(t, "already running", report.Sweeps[0].SkipReason)

	var skipped uint64
	for _, job := range monitoring.Snapshot().Sweeps.Jobs {
		if job.Sweep == lifecycle.SweepTasksToInProgress {
			skipped = job.Skipped
		}
	}
	require.Equal(t, uint64(1), skipped)

	close(release)
	<-done

	report, err = s.RunTransitions(context.Background())
	require.NoError(t, err)
	require.False(t, report.Sweeps[0].Skipped)
}

type lockerFunc func(ctx context.Context, key string, ttl time.Duration) (func(), bool, error)

func (f lockerFunc) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return f(ctx, key, ttl)
}

func TestLockErrorIsReported(t *testing.T) {
	sweeper := newRecordingSweeper()
	s := newTestScheduler(t, sweeper, WithLocker(lockerFunc(func(context.Context, string, time.Duration) (func(), bool, error) {
		return nil, false, errors.New("redis down")
	})))

	report, err := s.RunTransitions(context.Background())
	require.ErrorContains(t, err, "acquire lock: redis down")
	require.Equal(t, "redis down", report.Sweeps[0].Error)
	require.Empty(t, sweeper.Calls())
}

func TestStartRunsStartupPassAndStop(t *testing.T) {
	sweeper := newRecordingSweeper()
	s := newTestScheduler(t, sweeper, WithStartupDelay(10*time.Millisecond))

	require.NoError(t, s.Start())
	require.Error(t, s.Start())

	require.Eventually(t, func() bool {
		return len(sweeper.Calls()) == len(hourlyOrder)+1
	}, 2*time.Second, 10*time.Millisecond)

	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cron did not stop")
	}
	require.Len(t, s.cron.Entries(), 2)
}

func TestStopCancelsPendingStartupRun(t *testing.T) {
	sweeper := newRecordingSweeper()
	s := newTestScheduler(t, sweeper, WithStartupDelay(time.Hour))

	require.NoError(t, s.Start())
	<-s.Stop().Done()
	require.Empty(t, sweeper.Calls())
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := newTestScheduler(t, newRecordingSweeper(), WithHourlySchedule("not a schedule"))
	require.ErrorContains(t, s.Start(), "hourly schedule")
}

func TestNewRequiresSweeper(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
