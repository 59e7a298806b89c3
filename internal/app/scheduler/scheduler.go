// Package scheduler drives the lifecycle sweeps on cron ticks, once shortly after
// startup, and on demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/lifeadmin/internal/lifecycle"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
	"github.com/charlesng35/lifeadmin/pkg/logger"
)

const (
	defaultHourlySpec     = "@hourly"
	defaultTransitionSpec = "0 */6 * * *"
	defaultStartupDelay   = 5 * time.Second
	defaultLockTTL        = 30 * time.Minute
)

// Trigger names reported in logs, metrics and reports.
const (
	TriggerHourly      = "hourly"
	TriggerTransitions = "transitions"
	TriggerStartup     = "startup"
	TriggerManual      = "manual"
)

// Sweeper is the set of sweeps the scheduler drives.
type Sweeper interface {
	PromoteDueTasks(ctx context.Context) (lifecycle.Result, error)
	CompleteOverdueTasks(ctx context.Context) (lifecycle.Result, error)
	ConfirmAppointments(ctx context.Context) (lifecycle.Result, error)
	CompleteAppointments(ctx context.Context) (lifecycle.Result, error)
	AlertOverdueTasks(ctx context.Context) (lifecycle.Result, error)
	AlertTasksDueSoon(ctx context.Context) (lifecycle.Result, error)
	AlertUpcomingAppointments(ctx context.Context) (lifecycle.Result, error)
	RemindDayBefore(ctx context.Context) (lifecycle.Result, error)
	RemindDueToday(ctx context.Context) (lifecycle.Result, error)
}

// SweepReport is the outcome of one sweep within a run.
type SweepReport struct {
	lifecycle.Result
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Report summarises one scheduler run.
type Report struct {
	Trigger    string        `json:"trigger"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Sweeps     []SweepReport `json:"sweeps"`
}

type step struct {
	name string
	run  func(context.Context) (lifecycle.Result, error)
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for reports.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the timezone cron specifications are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithHourlySchedule overrides the cron specification for the hourly tick.
func WithHourlySchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.hourlySchedule = spec
		}
	}
}

// WithTransitionSchedule overrides the cron specification for the PENDING to IN_PROGRESS tick.
func WithTransitionSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.transitionSchedule = spec
		}
	}
}

// WithStartupDelay sets how long after Start the one-shot full run fires. Negative disables it.
func WithStartupDelay(delay time.Duration) Option {
	return func(s *Scheduler) {
		s.startupDelay = delay
	}
}

// WithLocker replaces the in-process sweep lock.
func WithLocker(locker Locker) Option {
	return func(s *Scheduler) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithLockTTL bounds how long a distributed sweep lock may be held.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Scheduler) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLogger overrides the scheduler logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// Scheduler owns the cron instance and startup timer that drive the sweeps.
type Scheduler struct {
	sweeper  Sweeper
	cron     *cron.Cron
	now      func() time.Time
	location *time.Location
	locker   Locker
	lockTTL  time.Duration
	log      *zap.Logger

	hourlySchedule     string
	transitionSchedule string
	startupDelay       time.Duration

	mu           sync.Mutex
	started      bool
	startupTimer *time.Timer
}

// New constructs a Scheduler with an hourly tick, a six-hourly transition tick and a
// startup run five seconds after Start.
func New(sweeper Sweeper, opts ...Option) (*Scheduler, error) {
	if sweeper == nil {
		return nil, errors.New("scheduler: sweeper is required")
	}

	s := &Scheduler{
		sweeper:            sweeper,
		now:                time.Now,
		location:           time.Local,
		lockTTL:            defaultLockTTL,
		log:                logger.WithModule("scheduler"),
		hourlySchedule:     defaultHourlySpec,
		transitionSchedule: defaultTransitionSpec,
		startupDelay:       defaultStartupDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLocation(s.location), cron.WithLogger(cron.DiscardLogger))
	}
	if s.locker == nil {
		s.locker = NewMemoryLocker()
	}
	return s, nil
}

// Start registers the cron jobs, arms the startup run and starts cron.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler: already started")
	}

	if _, err := s.cron.AddFunc(s.hourlySchedule, func() {
		s.runInBackground(TriggerHourly, s.hourlyPlan())
	}); err != nil {
		return fmt.Errorf("scheduler: hourly schedule %q: %w", s.hourlySchedule, err)
	}
	if _, err := s.cron.AddFunc(s.transitionSchedule, func() {
		s.runInBackground(TriggerTransitions, s.transitionPlan())
	}); err != nil {
		return fmt.Errorf("scheduler: transition schedule %q: %w", s.transitionSchedule, err)
	}

	if s.startupDelay >= 0 {
		s.startupTimer = time.AfterFunc(s.startupDelay, func() {
			s.runInBackground(TriggerStartup, s.fullPlan())
		})
	}

	s.cron.Start()
	s.started = true
	s.log.Info("scheduler started",
		zap.String("hourly", s.hourlySchedule),
		zap.String("transitions", s.transitionSchedule),
		zap.Duration("startup_delay", s.startupDelay),
		zap.String("location", s.location.String()),
	)
	return nil
}

// Stop cancels a pending startup run and halts cron. The returned context is done once
// running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startupTimer != nil {
		s.startupTimer.Stop()
		s.startupTimer = nil
	}
	s.started = false
	return s.cron.Stop()
}

// TriggerNow runs every sweep once, synchronously.
func (s *Scheduler) TriggerNow(ctx context.Context) (Report, error) {
	return s.run(ctx, TriggerManual, s.fullPlan())
}

// RunHourly runs the hourly tick body.
func (s *Scheduler) RunHourly(ctx context.Context) (Report, error) {
	return s.run(ctx, TriggerHourly, s.hourlyPlan())
}

// RunTransitions runs the six-hourly tick body.
func (s *Scheduler) RunTransitions(ctx context.Context) (Report, error) {
	return s.run(ctx, TriggerTransitions, s.transitionPlan())
}

func (s *Scheduler) hourlyPlan() []step {
	return []step{
		{lifecycle.SweepOverdueTasksToCompleted, s.sweeper.CompleteOverdueTasks},
		{lifecycle.SweepAppointmentsToConfirmed, s.sweeper.ConfirmAppointments},
		{lifecycle.SweepAppointmentsToCompleted, s.sweeper.CompleteAppointments},
		{lifecycle.SweepOverdueTaskAlert, s.sweeper.AlertOverdueTasks},
		{lifecycle.SweepDueSoonAlert, s.sweeper.AlertTasksDueSoon},
		{lifecycle.SweepUpcomingAppointmentAlert, s.sweeper.AlertUpcomingAppointments},
		{lifecycle.SweepDayBeforeReminder, s.sweeper.RemindDayBefore},
		{lifecycle.SweepDueTodayReminder, s.sweeper.RemindDueToday},
	}
}

func (s *Scheduler) transitionPlan() []step {
	return []step{
		{lifecycle.SweepTasksToInProgress, s.sweeper.PromoteDueTasks},
	}
}

func (s *Scheduler) fullPlan() []step {
	return append(s.transitionPlan(), s.hourlyPlan()...)
}

func (s *Scheduler) runInBackground(trigger string, plan []step) {
	if _, err := s.run(context.Background(), trigger, plan); err != nil {
		s.log.Warn("scheduled run finished with errors", zap.String("trigger", trigger), zap.Error(err))
	}
}

func (s *Scheduler) run(ctx context.Context, trigger string, plan []step) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	report := Report{
		Trigger:   trigger,
		StartedAt: s.now(),
		Sweeps:    make([]SweepReport, 0, len(plan)),
	}

	var errs error
	for _, st := range plan {
		sr, err := s.runStep(ctx, st)
		report.Sweeps = append(report.Sweeps, sr)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", st.name, err))
		}
	}
	report.FinishedAt = s.now()

	result := "success"
	if errs != nil {
		result = "failure"
	}
	monitoring.RecordSchedulerTick(trigger, result)
	s.log.Debug("scheduler run finished",
		zap.String("trigger", trigger),
		zap.Int("sweeps", len(report.Sweeps)),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, errs
}

func (s *Scheduler) runStep(ctx context.Context, st step) (SweepReport, error) {
	unlock, ok, err := s.locker.TryLock(ctx, st.name, s.lockTTL)
	if err != nil {
		s.log.Warn("sweep lock unavailable", zap.String("sweep", st.name), zap.Error(err))
		return SweepReport{
			Result: lifecycle.Result{Sweep: st.name},
			Error:  err.Error(),
		}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		monitoring.RecordSweepSkipped(st.name)
		s.log.Info("sweep already running, skipping", zap.String("sweep", st.name))
		return SweepReport{Result: lifecycle.Result{
			Sweep:      st.name,
			Skipped:    true,
			SkipReason: "already running",
		}}, nil
	}
	defer unlock()

	start := time.Now()
	res, err := invoke(ctx, st)
	duration := time.Since(start)
	if res.Sweep == "" {
		res.Sweep = st.name
	}

	run := monitoring.SweepRun{
		Sweep:    st.name,
		Result:   "success",
		Duration: duration,
		Found:    res.Found,
		Updated:  res.Updated,
		Notified: res.Notified,
		Errors:   res.Errors,
	}
	report := SweepReport{Result: res, Duration: duration}
	if err != nil {
		run.Result = "failure"
		run.Message = err.Error()
		report.Error = err.Error()
		s.log.Error("sweep failed", zap.String("sweep", st.name), zap.Error(err))
	}
	monitoring.RecordSweep(run)
	return report, err
}

func invoke(ctx context.Context, st step) (res lifecycle.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return st.run(ctx)
}
