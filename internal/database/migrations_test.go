package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/lifeadmin/internal/models"
)

func TestAutoMigrateCreatesReminderTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.User{},
		&models.UserSettings{},
		&models.Task{},
		&models.Appointment{},
		&models.Notification{},
		&models.NotificationReference{},
		&models.CacheEntry{},
	}

	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
	require.True(t, migrator.HasIndex(&models.NotificationReference{}, "idx_notification_reference_dedup"))
}

func TestAutoMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, AutoMigrate(db))
}

func TestNotificationReferenceUniqueIndex(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	ref := models.NotificationReference{
		NotificationID: "n-1",
		UserID:         "u-1",
		Type:           models.NotificationTypeTaskReminder,
		ResourceKind:   "task",
		ResourceID:     "t-1",
		ReminderKind:   "overdue",
		Day:            "2024-03-10",
	}
	require.NoError(t, db.Create(&ref).Error)

	dup := ref
	dup.ID = ""
	dup.NotificationID = "n-2"
	require.Error(t, db.Create(&dup).Error)

	nextDay := ref
	nextDay.ID = ""
	nextDay.NotificationID = "n-3"
	nextDay.Day = "2024-03-11"
	require.NoError(t, db.Create(&nextDay).Error)
}

func TestUserSettingsDefaults(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	user := models.User{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.UserSettings{UserID: user.ID}).Error)

	var settings models.UserSettings
	require.NoError(t, db.First(&settings, "user_id = ?", user.ID).Error)
	require.True(t, settings.EmailNotifications)
	require.False(t, settings.SMSNotifications)
	require.False(t, settings.WhatsAppNotifications)
}

func TestAppointmentRejectsInvertedRange(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	appt := models.Appointment{
		UserID:    "u-1",
		Title:     "Dentist",
		StartTime: start,
		EndTime:   start.Add(-time.Minute),
	}
	err := db.Create(&appt).Error
	require.ErrorIs(t, err, models.ErrAppointmentEndsBeforeStart)
}
