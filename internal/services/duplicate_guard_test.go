package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/lifeadmin/internal/models"
)

func TestDayWindowRespectsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)

	start, end := DayWindow(at, loc)
	require.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), start)
	require.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, loc), end)
	require.Equal(t, "2024-03-11", DayKey(at, loc))
	require.Equal(t, "2024-03-10", DayKey(at, time.UTC))
}

func TestDuplicateGuardByReference(t *testing.T) {
	st, db := newTestStore(t)
	user := seedUser(t, db, "user-1")
	clock := newFakeClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))

	guard, err := NewDuplicateGuard(st, clock.Now, time.UTC)
	require.NoError(t, err)

	ctx := context.Background()
	check := DuplicateCheck{
		UserID:       user.ID,
		Type:         models.NotificationTypeTaskReminder,
		ResourceKind: "task",
		ResourceID:   "t1",
		ReminderKind: "due_today",
	}

	suppress, err := guard.ShouldSuppress(ctx, check)
	require.NoError(t, err)
	require.False(t, suppress)

	require.NoError(t, st.CreateNotification(ctx, &models.Notification{
		UserID: user.ID,
		Type:   models.NotificationTypeTaskReminder,
		Title:  "Due today",
	}, []models.NotificationReference{{
		ResourceKind: "task",
		ResourceID:   "t1",
		ReminderKind: "due_today",
		Day:          guard.Day(time.Time{}),
	}}))

	suppress, err = guard.ShouldSuppress(ctx, check)
	require.NoError(t, err)
	require.True(t, suppress)

	other := check
	other.ReminderKind = "overdue"
	suppress, err = guard.ShouldSuppress(ctx, other)
	require.NoError(t, err)
	require.False(t, suppress, "a different reminder kind is a different notification")

	anyKind := check
	anyKind.ReminderKind = ""
	suppress, err = guard.ShouldSuppress(ctx, anyKind)
	require.NoError(t, err)
	require.True(t, suppress, "no reminder kind matches any kind")

	clock.Advance(24 * time.Hour)
	suppress, err = guard.ShouldSuppress(ctx, check)
	require.NoError(t, err)
	require.False(t, suppress, "the window is one calendar day")
}

func TestDuplicateGuardContentFallback(t *testing.T) {
	st, db := newTestStore(t)
	user := seedUser(t, db, "user-1")
	clock := newFakeClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))

	guard, err := NewDuplicateGuard(st, clock.Now, time.UTC)
	require.NoError(t, err)

	ctx := context.Background()
	existing := models.Notification{
		BaseModel: models.BaseModel{CreatedAt: clock.Now().Add(-time.Hour)},
		UserID:    user.ID,
		Type:      models.NotificationTypeGeneral,
		Title:     "Weekly review",
		Message:   "Review your open tasks",
	}
	require.NoError(t, st.CreateNotification(ctx, &existing, nil))

	check := DuplicateCheck{
		UserID:  user.ID,
		Type:    models.NotificationTypeGeneral,
		Title:   "Weekly review",
		Message: "Review your open tasks",
	}
	suppress, err := guard.ShouldSuppress(ctx, check)
	require.NoError(t, err)
	require.True(t, suppress)

	check.Message = "Review your open tasks!"
	suppress, err = guard.ShouldSuppress(ctx, check)
	require.NoError(t, err)
	require.False(t, suppress)

	check.Message = existing.Message
	check.At = clock.Now().Add(-9 * time.Hour)
	suppress, err = guard.ShouldSuppress(ctx, check)
	require.NoError(t, err)
	require.False(t, suppress, "yesterday's window does not contain today's notification")
}

func TestDuplicateGuardValidation(t *testing.T) {
	st, _ := newTestStore(t)
	guard, err := NewDuplicateGuard(st, nil, nil)
	require.NoError(t, err)

	_, err = guard.ShouldSuppress(context.Background(), DuplicateCheck{Type: models.NotificationTypeGeneral})
	require.Error(t, err)

	_, err = guard.ShouldSuppress(context.Background(), DuplicateCheck{UserID: "u", ResourceID: "t1"})
	require.Error(t, err)

	_, err = NewDuplicateGuard(nil, nil, nil)
	require.Error(t, err)
}
