package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel is embedded by every user-owned table. IDs are UUIDv7 so they sort by
// creation time.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	return assignID(&m.ID)
}

// assignID fills an empty id. Caller-supplied ids are kept.
func assignID(id *string) error {
	if *id != "" {
		return nil
	}
	v7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v7.String()
	return nil
}
