package lifecycle

import (
	"time"

	"github.com/jinzhu/now"
)

// Windows holds the calendar boundaries derived from one instant. Adjacent day windows
// share an edge but never overlap: each is the half-open range [start, next start).
type Windows struct {
	Now              time.Time
	StartOfYesterday time.Time
	EndOfYesterday   time.Time
	StartOfToday     time.Time
	EndOfToday       time.Time
	StartOfTomorrow  time.Time
	EndOfTomorrow    time.Time
	StartOfDayAfter  time.Time
}

// WindowsAt computes the day windows around t in loc. End-of-day values are the last
// representable instant of the day.
func WindowsAt(t time.Time, loc *time.Location) Windows {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	today := now.With(local)
	startOfToday := today.BeginningOfDay()
	startOfTomorrow := now.With(startOfToday.AddDate(0, 0, 1)).BeginningOfDay()
	startOfDayAfter := now.With(startOfToday.AddDate(0, 0, 2)).BeginningOfDay()
	startOfYesterday := now.With(startOfToday.AddDate(0, 0, -1)).BeginningOfDay()

	return Windows{
		Now:              local,
		StartOfYesterday: startOfYesterday,
		EndOfYesterday:   now.With(startOfYesterday).EndOfDay(),
		StartOfToday:     startOfToday,
		EndOfToday:       today.EndOfDay(),
		StartOfTomorrow:  startOfTomorrow,
		EndOfTomorrow:    now.With(startOfTomorrow).EndOfDay(),
		StartOfDayAfter:  startOfDayAfter,
	}
}

// Hour returns the wall-clock hour used by gated reminders.
func (w Windows) Hour() int {
	return w.Now.Hour()
}
