// Package lifecycle holds the time-driven sweeps that move tasks and appointments through
// their states and emit reminders. Sweeps are level-triggered: every run re-selects rows
// by state and time, so an entity that failed on one run is picked up by the next.
package lifecycle

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/lifeadmin/internal/models"
	"github.com/charlesng35/lifeadmin/internal/services"
	"github.com/charlesng35/lifeadmin/internal/store"
	"github.com/charlesng35/lifeadmin/pkg/logger"
)

// Sweep names, used in logs, metrics and lock keys.
const (
	SweepTasksToInProgress        = "tasks-to-in-progress"
	SweepOverdueTasksToCompleted  = "overdue-tasks-to-completed"
	SweepAppointmentsToConfirmed  = "appointments-to-confirmed"
	SweepAppointmentsToCompleted  = "appointments-to-completed"
	SweepOverdueTaskAlert         = "overdue-task-alert"
	SweepDueSoonAlert             = "due-soon-alert"
	SweepUpcomingAppointmentAlert = "upcoming-appointment-alert"
	SweepDayBeforeReminder        = "day-before-reminder"
	SweepDueTodayReminder         = "due-today-reminder"
)

// Gateway is the persistence surface used by sweeps.
type Gateway interface {
	FindTasks(ctx context.Context, filter store.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, id string, patch store.TaskPatch) (*models.Task, error)
	FindAppointments(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, patch store.AppointmentPatch) (*models.Appointment, error)
}

// Notifier creates and delivers a notification, applying duplicate suppression.
type Notifier interface {
	Notify(ctx context.Context, input services.NotifyInput) (*services.NotifyResult, error)
}

// Result summarises one sweep run. Updated counts entities processed successfully: a
// written transition for transition sweeps, a created reminder for reminder sweeps.
type Result struct {
	Sweep      string `json:"sweep"`
	Found      int    `json:"found"`
	Updated    int    `json:"updated"`
	Notified   int    `json:"notified"`
	Suppressed int    `json:"suppressed"`
	Errors     int    `json:"errors"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

var (
	defaultDayBeforeHours = []int{7, 20}
	defaultDueTodayHours  = []int{6}
)

const (
	defaultUpcomingFrom  = time.Hour
	defaultUpcomingUntil = 2 * time.Hour
)

// Option customises a Sweeper.
type Option func(*Sweeper)

// WithClock injects the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLocation sets the timezone that defines calendar days and trigger hours.
func WithLocation(loc *time.Location) Option {
	return func(s *Sweeper) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithDayBeforeHours overrides the hours at which the day-before reminder fires.
func WithDayBeforeHours(hours ...int) Option {
	return func(s *Sweeper) {
		if len(hours) > 0 {
			s.dayBeforeHours = slices.Clone(hours)
		}
	}
}

// WithDueTodayHours overrides the hours at which the due-today reminder fires.
func WithDueTodayHours(hours ...int) Option {
	return func(s *Sweeper) {
		if len(hours) > 0 {
			s.dueTodayHours = slices.Clone(hours)
		}
	}
}

// WithUpcomingWindow sets the [from, until) offset from now for upcoming appointment alerts.
func WithUpcomingWindow(from, until time.Duration) Option {
	return func(s *Sweeper) {
		if until > from {
			s.upcomingFrom = from
			s.upcomingUntil = until
		}
	}
}

// WithLogger overrides the sweeper logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Sweeper) {
		if log != nil {
			s.log = log
		}
	}
}

// Sweeper runs the lifecycle sweeps against a gateway and notifier.
type Sweeper struct {
	gateway  Gateway
	notifier Notifier
	now      func() time.Time
	location *time.Location
	log      *zap.Logger

	dayBeforeHours []int
	dueTodayHours  []int
	upcomingFrom   time.Duration
	upcomingUntil  time.Duration
}

// New constructs a Sweeper.
func New(gateway Gateway, notifier Notifier, opts ...Option) (*Sweeper, error) {
	if gateway == nil {
		return nil, errors.New("lifecycle: gateway is required")
	}
	if notifier == nil {
		return nil, errors.New("lifecycle: notifier is required")
	}
	s := &Sweeper{
		gateway:        gateway,
		notifier:       notifier,
		now:            time.Now,
		location:       time.Local,
		log:            logger.WithModule("lifecycle"),
		dayBeforeHours: slices.Clone(defaultDayBeforeHours),
		dueTodayHours:  slices.Clone(defaultDueTodayHours),
		upcomingFrom:   defaultUpcomingFrom,
		upcomingUntil:  defaultUpcomingUntil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Location returns the timezone used for day windows.
func (s *Sweeper) Location() *time.Location {
	return s.location
}

func (s *Sweeper) windows() Windows {
	return WindowsAt(s.now(), s.location)
}

// notify sends one reminder and folds the outcome into res. It reports whether a
// notification was created.
func (s *Sweeper) notify(ctx context.Context, res *Result, input services.NotifyInput) bool {
	out, err := s.notifier.Notify(ctx, input)
	if err != nil {
		res.Errors++
		s.log.Warn("reminder notification failed",
			zap.String("sweep", res.Sweep),
			zap.String("user_id", input.UserID),
			zap.String("resource_id", resourceID(input)),
			zap.Error(err),
		)
		return false
	}
	if out == nil || out.Suppressed {
		res.Suppressed++
		return false
	}
	res.Notified++
	return true
}

func (s *Sweeper) entityFailed(res *Result, kind, id string, err error) {
	res.Errors++
	s.log.Warn("sweep entity failed",
		zap.String("sweep", res.Sweep),
		zap.String("resource_kind", kind),
		zap.String("resource_id", id),
		zap.Error(err),
	)
}

func (s *Sweeper) finish(res Result) Result {
	if res.Found > 0 || res.Errors > 0 {
		s.log.Info("sweep finished",
			zap.String("sweep", res.Sweep),
			zap.Int("found", res.Found),
			zap.Int("updated", res.Updated),
			zap.Int("notified", res.Notified),
			zap.Int("suppressed", res.Suppressed),
			zap.Int("errors", res.Errors),
		)
	}
	return res
}

func gated(res Result, hour int, hours []int) (Result, bool) {
	if slices.Contains(hours, hour) {
		return res, false
	}
	res.Skipped = true
	res.SkipReason = "outside trigger hours"
	return res, true
}

func resourceID(input services.NotifyInput) string {
	if input.Resource == nil {
		return ""
	}
	return input.Resource.ID
}
