package models

import "time"

// UserSettings stores per-user delivery preferences for notification channels.
type UserSettings struct {
	UserID string `gorm:"primaryKey;size:36" json:"user_id"`

	EmailNotifications    bool `gorm:"default:true" json:"email_notifications"`
	SMSNotifications      bool `gorm:"default:false" json:"sms_notifications"`
	WhatsAppNotifications bool `gorm:"default:false" json:"whatsapp_notifications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultUserSettings mirrors the column defaults for users without a settings row.
func DefaultUserSettings(userID string) UserSettings {
	return UserSettings{
		UserID:             userID,
		EmailNotifications: true,
	}
}
