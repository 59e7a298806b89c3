package models

import "time"

// TaskStatus enumerates task lifecycle states.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// Valid reports whether the status is a known lifecycle state.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// ActiveTaskStatuses lists states that still expect work from the owner.
var ActiveTaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress}

// Task is a user-owned to-do item with an optional due date.
type Task struct {
	BaseModel

	UserID      string     `gorm:"size:36;index;not null" json:"user_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(32);index;not null;default:'PENDING'" json:"status"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
}

// SetStatus moves the task to status, keeping CompletedAt non-nil exactly when completed.
func (t *Task) SetStatus(status TaskStatus, at time.Time) {
	t.Status = status
	if status == TaskStatusCompleted {
		if t.CompletedAt == nil {
			completed := at
			t.CompletedAt = &completed
		}
		return
	}
	t.CompletedAt = nil
}
