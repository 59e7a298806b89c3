package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"go.uber.org/zap"

	"github.com/charlesng35/lifeadmin/internal/models"
	"github.com/charlesng35/lifeadmin/internal/store"
	"github.com/charlesng35/lifeadmin/pkg/logger"
)

// DayKeyLayout formats the calendar day stored on notification references.
const DayKeyLayout = "2006-01-02"

// DuplicateCheck describes a notification about to be created. With a ResourceID the
// check matches by reference; without one it falls back to an exact title and message match.
type DuplicateCheck struct {
	UserID       string
	Type         models.NotificationType
	ResourceKind string
	ResourceID   string
	ReminderKind string
	Title        string
	Message      string
	// At overrides the guard clock. Zero means now.
	At time.Time
}

type referenceLookup interface {
	HasReference(ctx context.Context, query store.ReferenceQuery) (bool, error)
	CountNotifications(ctx context.Context, filter store.NotificationFilter) (int64, error)
}

// DuplicateGuard decides whether an equivalent notification already exists for the same
// user and resource on the current calendar day.
type DuplicateGuard struct {
	store    referenceLookup
	clock    func() time.Time
	location *time.Location
	log      *zap.Logger
}

// NewDuplicateGuard constructs a guard. A nil clock uses time.Now and a nil location uses time.Local.
func NewDuplicateGuard(lookup referenceLookup, clock func() time.Time, location *time.Location) (*DuplicateGuard, error) {
	if lookup == nil {
		return nil, errors.New("duplicate guard: store is required")
	}
	if clock == nil {
		clock = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &DuplicateGuard{
		store:    lookup,
		clock:    clock,
		location: location,
		log:      logger.WithModule("duplicate-guard"),
	}, nil
}

// DayWindow returns the half-open calendar day [start, next start) containing t in loc.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := now.With(t.In(loc)).BeginningOfDay()
	return start, start.AddDate(0, 0, 1)
}

// DayKey formats the calendar day containing t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyLayout)
}

// Day returns the reference day key for at, using the guard clock when at is zero.
func (g *DuplicateGuard) Day(at time.Time) string {
	if at.IsZero() {
		at = g.clock()
	}
	return DayKey(at, g.location)
}

// ShouldSuppress reports whether the notification described by check was already created today.
func (g *DuplicateGuard) ShouldSuppress(ctx context.Context, check DuplicateCheck) (bool, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(check.UserID) == "" {
		return false, errors.New("duplicate guard: user id is required")
	}

	at := check.At
	if at.IsZero() {
		at = g.clock()
	}

	if check.ResourceID != "" {
		if check.ResourceKind == "" {
			return false, errors.New("duplicate guard: resource kind is required with a resource id")
		}
		found, err := g.store.HasReference(ctx, store.ReferenceQuery{
			UserID:       check.UserID,
			Type:         check.Type,
			ResourceKind: check.ResourceKind,
			ResourceID:   check.ResourceID,
			ReminderKind: check.ReminderKind,
			Day:          DayKey(at, g.location),
		})
		if err != nil {
			return false, fmt.Errorf("duplicate guard: %w", err)
		}
		if found {
			g.log.Info("duplicate notification suppressed",
				zap.String("user_id", check.UserID),
				zap.String("type", string(check.Type)),
				zap.String("resource_kind", check.ResourceKind),
				zap.String("resource_id", check.ResourceID),
				zap.String("reminder_kind", check.ReminderKind),
			)
		}
		return found, nil
	}

	start, end := DayWindow(at, g.location)
	title, message := check.Title, check.Message
	count, err := g.store.CountNotifications(ctx, store.NotificationFilter{
		UserID:  check.UserID,
		Types:   []models.NotificationType{check.Type},
		Created: store.Within(start, end),
		Title:   &title,
		Message: &message,
	})
	if err != nil {
		return false, fmt.Errorf("duplicate guard: %w", err)
	}
	if count > 0 {
		g.log.Info("duplicate notification suppressed by content",
			zap.String("user_id", check.UserID),
			zap.String("type", string(check.Type)),
			zap.String("title", check.Title),
		)
	}
	return count > 0, nil
}
