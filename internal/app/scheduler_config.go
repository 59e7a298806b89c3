package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/lifeadmin/internal/app/scheduler"
	"github.com/charlesng35/lifeadmin/internal/lifecycle"
)

// Location resolves the timezone day windows and cron specifications are evaluated in.
// An empty value or "Local" selects the process timezone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone %q: %w", name, err)
	}
	return loc, nil
}

// LifecycleOptions converts reminder settings into sweeper options.
func (c SchedulerConfig) LifecycleOptions(loc *time.Location) []lifecycle.Option {
	opts := []lifecycle.Option{lifecycle.WithLocation(loc)}
	if len(c.DayBeforeHours) > 0 {
		opts = append(opts, lifecycle.WithDayBeforeHours(c.DayBeforeHours...))
	}
	if len(c.DueTodayHours) > 0 {
		opts = append(opts, lifecycle.WithDueTodayHours(c.DueTodayHours...))
	}
	if c.UpcomingFrom > 0 && c.UpcomingUntil > c.UpcomingFrom {
		opts = append(opts, lifecycle.WithUpcomingWindow(c.UpcomingFrom, c.UpcomingUntil))
	}
	return opts
}

// SchedulerOptions converts tick settings into scheduler options. The locker is chosen by
// the caller since it depends on which cache backend is available.
func (c SchedulerConfig) SchedulerOptions(loc *time.Location) []scheduler.Option {
	return []scheduler.Option{
		scheduler.WithLocation(loc),
		scheduler.WithHourlySchedule(strings.TrimSpace(c.HourlySchedule)),
		scheduler.WithTransitionSchedule(strings.TrimSpace(c.TransitionSchedule)),
		scheduler.WithStartupDelay(c.StartupDelay),
		scheduler.WithLockTTL(c.LockTTL),
	}
}
