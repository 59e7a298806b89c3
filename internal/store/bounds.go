package store

import (
	"time"

	"gorm.io/gorm"
)

// TimeRange restricts a timestamp column. A zero From or Until leaves that side open.
type TimeRange struct {
	From         time.Time
	Until        time.Time
	IncludeUntil bool
}

// AtOrBefore matches values <= t.
func AtOrBefore(t time.Time) *TimeRange {
	return &TimeRange{Until: t, IncludeUntil: true}
}

// Before matches values < t.
func Before(t time.Time) *TimeRange {
	return &TimeRange{Until: t}
}

// Within matches the half-open interval [from, to).
func Within(from, to time.Time) *TimeRange {
	return &TimeRange{From: from, Until: to}
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if r.Until.IsZero() {
		return true
	}
	if r.IncludeUntil {
		return !t.After(r.Until)
	}
	return t.Before(r.Until)
}

func (r *TimeRange) apply(q *gorm.DB, column string) *gorm.DB {
	if r == nil {
		return q
	}
	if !r.From.IsZero() {
		q = q.Where(column+" >= ?", r.From.UTC())
	}
	if !r.Until.IsZero() {
		if r.IncludeUntil {
			q = q.Where(column+" <= ?", r.Until.UTC())
		} else {
			q = q.Where(column+" < ?", r.Until.UTC())
		}
	}
	return q
}

// Timestamps are stored in UTC so that text-encoded drivers compare them correctly.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
