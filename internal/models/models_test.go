package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))
	require.NotEmpty(t, base.ID)

	preset := BaseModel{ID: "fixed"}
	require.NoError(t, preset.BeforeCreate(nil))
	require.Equal(t, "fixed", preset.ID)
}

func TestGeneratedIDsSortByCreation(t *testing.T) {
	var first, second NotificationReference
	require.NoError(t, first.BeforeCreate(nil))
	require.NoError(t, second.BeforeCreate(nil))

	parsed, err := uuid.Parse(first.ID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), parsed.Version())
	require.Less(t, first.ID, second.ID)
}

func TestAppointmentBeforeCreate(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	ok := &Appointment{StartTime: start, EndTime: start}
	require.NoError(t, ok.BeforeCreate(nil))
	require.NotEmpty(t, ok.ID)

	bad := &Appointment{StartTime: start, EndTime: start.Add(-time.Second)}
	require.ErrorIs(t, bad.BeforeCreate(nil), ErrAppointmentEndsBeforeStart)
	require.Empty(t, bad.ID)
}

func TestTaskSetStatusMaintainsCompletedAt(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	task := &Task{Status: TaskStatusPending}

	task.SetStatus(TaskStatusCompleted, at)
	require.Equal(t, TaskStatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	require.True(t, task.CompletedAt.Equal(at))

	// Re-completing keeps the original timestamp.
	task.SetStatus(TaskStatusCompleted, at.Add(time.Hour))
	require.True(t, task.CompletedAt.Equal(at))

	task.SetStatus(TaskStatusInProgress, at)
	require.Nil(t, task.CompletedAt)
}

func TestStatusValidation(t *testing.T) {
	require.True(t, TaskStatusInProgress.Valid())
	require.False(t, TaskStatus("DONE").Valid())
	require.True(t, AppointmentStatusCancelled.Valid())
	require.False(t, AppointmentStatus("").Valid())
	require.True(t, NotificationTypePaymentDue.Valid())
	require.False(t, NotificationType("PUSH").Valid())
}

func TestUserDisplayName(t *testing.T) {
	require.Equal(t, "Ada", User{Name: "Ada", Email: "ada@example.com"}.DisplayName())
	require.Equal(t, "ada@example.com", User{Email: "ada@example.com"}.DisplayName())
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.False(t, CacheEntry{}.Expired(now))
	require.True(t, CacheEntry{ExpiresAt: now.Add(-time.Second)}.Expired(now))
	require.False(t, CacheEntry{ExpiresAt: now.Add(time.Second)}.Expired(now))
}

func TestDefaultUserSettings(t *testing.T) {
	settings := DefaultUserSettings("u-1")
	require.Equal(t, "u-1", settings.UserID)
	require.True(t, settings.EmailNotifications)
	require.False(t, settings.SMSNotifications)
	require.False(t, settings.WhatsAppNotifications)
}
