package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType classifies notifications for filtering and deduplication.
type NotificationType string

const (
	NotificationTypeGeneral             NotificationType = "GENERAL"
	NotificationTypeTaskReminder        NotificationType = "TASK_REMINDER"
	NotificationTypeAppointmentReminder NotificationType = "APPOINTMENT_REMINDER"
	NotificationTypePaymentDue          NotificationType = "PAYMENT_DUE"
	NotificationTypeSystemUpdate        NotificationType = "SYSTEM_UPDATE"
)

// Valid reports whether the type is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeGeneral,
		NotificationTypeTaskReminder,
		NotificationTypeAppointmentReminder,
		NotificationTypePaymentDue,
		NotificationTypeSystemUpdate:
		return true
	}
	return false
}

// Notification represents an in-app notification for a user.
type Notification struct {
	BaseModel

	UserID  string           `gorm:"size:36;index;not null" json:"user_id"`
	Type    NotificationType `gorm:"type:varchar(64);index;not null" json:"type"`
	Title   string           `gorm:"type:varchar(255);not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	Payload datatypes.JSON   `json:"payload"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}
