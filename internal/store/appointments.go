package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/lifeadmin/internal/models"
	apperrors "github.com/charlesng35/lifeadmin/pkg/errors"
)

// AppointmentFilter selects appointments. Empty fields are ignored.
type AppointmentFilter struct {
	IDs      []string
	UserID   string
	Statuses []models.AppointmentStatus
	Start    *TimeRange
	End      *TimeRange
	Limit    int
	Offset   int
}

// AppointmentPatch describes a partial appointment update.
type AppointmentPatch struct {
	Title        *string
	Location     *string
	StartTime    *time.Time
	EndTime      *time.Time
	Status       *models.AppointmentStatus
	ExpectStatus *models.AppointmentStatus
}

func (s *Store) appointmentQuery(ctx context.Context, filter AppointmentFilter) *gorm.DB {
	q := s.conn(ctx).Model(&models.Appointment{})
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	q = filter.Start.apply(q, "start_time")
	q = filter.End.apply(q, "end_time")
	return q
}

// FindAppointments returns appointments ordered by start time then id.
func (s *Store) FindAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	var appts []models.Appointment
	q := applyPaging(s.appointmentQuery(ctx, filter), filter.Limit, filter.Offset)
	if err := q.Order("start_time ASC").Order("id ASC").Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("store: find appointments: %w", err)
	}
	return appts, nil
}

// CountAppointments counts appointments matching the filter, ignoring paging.
func (s *Store) CountAppointments(ctx context.Context, filter AppointmentFilter) (int64, error) {
	var count int64
	if err := s.appointmentQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count appointments: %w", err)
	}
	return count, nil
}

// CreateAppointment persists a new appointment, defaulting the status to SCHEDULED.
func (s *Store) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	if appt == nil {
		return errors.New("store: create appointment: nil appointment")
	}
	if appt.Status == "" {
		appt.Status = models.AppointmentStatusScheduled
	}
	if !appt.Status.Valid() {
		return fmt.Errorf("store: create appointment: invalid status %q", appt.Status)
	}
	appt.StartTime = utc(appt.StartTime)
	appt.EndTime = utc(appt.EndTime)
	if err := s.conn(ctx).Create(appt).Error; err != nil {
		return fmt.Errorf("store: create appointment: %w", err)
	}
	return nil
}

// UpdateAppointment applies patch to the appointment with id and returns the updated row.
func (s *Store) UpdateAppointment(ctx context.Context, id string, patch AppointmentPatch) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&appt, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if patch.ExpectStatus != nil && appt.Status != *patch.ExpectStatus {
			return ErrStaleStatus
		}

		updates := map[string]any{}
		if patch.Title != nil {
			appt.Title = *patch.Title
			updates["title"] = appt.Title
		}
		if patch.Location != nil {
			appt.Location = *patch.Location
			updates["location"] = appt.Location
		}
		if patch.StartTime != nil {
			appt.StartTime = utc(*patch.StartTime)
			updates["start_time"] = appt.StartTime
		}
		if patch.EndTime != nil {
			appt.EndTime = utc(*patch.EndTime)
			updates["end_time"] = appt.EndTime
		}
		if appt.EndTime.Before(appt.StartTime) {
			return models.ErrAppointmentEndsBeforeStart
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return fmt.Errorf("invalid status %q", *patch.Status)
			}
			appt.Status = *patch.Status
			updates["status"] = appt.Status
		}
		if len(updates) == 0 {
			return nil
		}

		q := tx.Model(&models.Appointment{}).Where("id = ?", id)
		if patch.ExpectStatus != nil {
			q = q.Where("status = ?", *patch.ExpectStatus)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, ErrStaleStatus) {
			return nil, err
		}
		return nil, fmt.Errorf("store: update appointment %s: %w", id, err)
	}
	return &appt, nil
}
