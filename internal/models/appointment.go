package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus enumerates appointment lifecycle states.
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
)

// Valid reports whether the status is a known lifecycle state.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// ActiveAppointmentStatuses lists states that can still produce reminders.
var ActiveAppointmentStatuses = []AppointmentStatus{AppointmentStatusScheduled, AppointmentStatusConfirmed}

// ErrAppointmentEndsBeforeStart is returned when an appointment is created with an inverted time range.
var ErrAppointmentEndsBeforeStart = errors.New("appointment: end time precedes start time")

// Appointment is a user-owned calendar entry.
type Appointment struct {
	BaseModel

	UserID      string            `gorm:"size:36;index;not null" json:"user_id"`
	Title       string            `gorm:"type:varchar(255);not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Location    string            `gorm:"type:varchar(255)" json:"location"`
	Status      AppointmentStatus `gorm:"type:varchar(32);index;not null;default:'SCHEDULED'" json:"status"`
	StartTime   time.Time         `gorm:"index;not null" json:"start_time"`
	EndTime     time.Time         `gorm:"index;not null" json:"end_time"`
}

// BeforeCreate assigns an identifier and rejects inverted time ranges.
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.EndTime.Before(a.StartTime) {
		return ErrAppointmentEndsBeforeStart
	}
	return a.BaseModel.BeforeCreate(tx)
}
