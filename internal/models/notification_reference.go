package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationReference indexes a notification by the resource it talks about. One row
// exists per (user, type, resource, reminder kind, calendar day); the unique index is what
// makes duplicate reminders impossible even when two sweeps race.
type NotificationReference struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	NotificationID string           `gorm:"size:36;index;not null" json:"notification_id"`
	UserID         string           `gorm:"size:36;not null;uniqueIndex:idx_notification_reference_dedup,priority:1" json:"user_id"`
	Type           NotificationType `gorm:"type:varchar(64);not null;uniqueIndex:idx_notification_reference_dedup,priority:2" json:"type"`
	ResourceKind   string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_notification_reference_dedup,priority:3" json:"resource_kind"`
	ResourceID     string           `gorm:"size:64;not null;uniqueIndex:idx_notification_reference_dedup,priority:4" json:"resource_id"`
	ReminderKind   string           `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_notification_reference_dedup,priority:5" json:"reminder_kind"`
	Day            string           `gorm:"type:varchar(10);not null;uniqueIndex:idx_notification_reference_dedup,priority:6" json:"day"`
	CreatedAt      time.Time        `json:"created_at"`
}

func (r *NotificationReference) BeforeCreate(*gorm.DB) error {
	return assignID(&r.ID)
}
