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

// TaskFilter selects tasks. Empty fields are ignored.
type TaskFilter struct {
	IDs      []string
	UserID   string
	Statuses []models.TaskStatus
	Due      *TimeRange
	Limit    int
	Offset   int
}

// TaskPatch describes a partial task update. A Status change keeps CompletedAt consistent
// with the new state; ExpectStatus turns the update into a compare-and-set.
type TaskPatch struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	Status       *models.TaskStatus
	ExpectStatus *models.TaskStatus
	At           time.Time
}

func (s *Store) taskQuery(ctx context.Context, filter TaskFilter) *gorm.DB {
	q := s.conn(ctx).Model(&models.Task{})
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.Due != nil {
		q = q.Where("due_date IS NOT NULL")
		q = filter.Due.apply(q, "due_date")
	}
	return q
}

// FindTasks returns tasks ordered by due date then id.
func (s *Store) FindTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	var tasks []models.Task
	q := applyPaging(s.taskQuery(ctx, filter), filter.Limit, filter.Offset)
	if err := q.Order("due_date ASC").Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("store: find tasks: %w", err)
	}
	return tasks, nil
}

// CountTasks counts tasks matching the filter, ignoring paging.
func (s *Store) CountTasks(ctx context.Context, filter TaskFilter) (int64, error) {
	var count int64
	if err := s.taskQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count tasks: %w", err)
	}
	return count, nil
}

// CreateTask persists a new task, defaulting the status to PENDING.
func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	if task == nil {
		return errors.New("store: create task: nil task")
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if !task.Status.Valid() {
		return fmt.Errorf("store: create task: invalid status %q", task.Status)
	}
	task.DueDate = utcPtr(task.DueDate)
	task.SetStatus(task.Status, time.Now())
	task.CompletedAt = utcPtr(task.CompletedAt)
	if err := s.conn(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("store: create task: %w", err)
	}
	return nil
}

// UpdateTask applies patch to the task with id and returns the updated row.
func (s *Store) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*models.Task, error) {
	var task models.Task
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if patch.ExpectStatus != nil && task.Status != *patch.ExpectStatus {
			return ErrStaleStatus
		}

		updates := map[string]any{}
		if patch.Title != nil {
			task.Title = *patch.Title
			updates["title"] = task.Title
		}
		if patch.Description != nil {
			task.Description = *patch.Description
			updates["description"] = task.Description
		}
		if patch.DueDate != nil {
			due := utc(*patch.DueDate)
			task.DueDate = &due
			updates["due_date"] = due
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return fmt.Errorf("invalid status %q", *patch.Status)
			}
			at := patch.At
			if at.IsZero() {
				at = time.Now()
			}
			task.SetStatus(*patch.Status, utc(at))
			updates["status"] = task.Status
			updates["completed_at"] = task.CompletedAt
		}
		if len(updates) == 0 {
			return nil
		}

		q := tx.Model(&models.Task{}).Where("id = ?", id)
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
		return nil, fmt.Errorf("store: update task %s: %w", id, err)
	}
	return &task, nil
}
