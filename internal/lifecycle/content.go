package lifecycle

import (
	"fmt"
	"time"

	"github.com/charlesng35/lifeadmin/internal/models"
	"github.com/charlesng35/lifeadmin/internal/services"
)

// Reminder tags stored in the payload reminderType field and on notification references.
const (
	ReminderStatusInProgress     = "status_in_progress"
	ReminderStatusCompleted      = "status_completed"
	ReminderAppointmentConfirmed = "appointment_confirmed"
	ReminderAppointmentCompleted = "appointment_completed"
	ReminderOverdue              = "overdue"
	ReminderDueSoon              = "due_soon"
	ReminderUpcoming             = "upcoming"
	ReminderDayBefore            = "day_before"
	ReminderDueToday             = "due_today"
)

// Resource kinds used for notification references.
const (
	ResourceTask        = "task"
	ResourceAppointment = "appointment"
)

const displayLayout = "Mon Jan 2, 2006 3:04 PM"

func (s *Sweeper) display(t time.Time) string {
	return t.In(s.location).Format(displayLayout)
}

func taskPayload(task models.Task, reminder string) map[string]any {
	payload := map[string]any{
		"taskId":       task.ID,
		"reminderType": reminder,
		"status":       string(task.Status),
	}
	if task.DueDate != nil {
		payload["dueDate"] = task.DueDate.UTC().Format(time.RFC3339)
	}
	return payload
}

func appointmentPayload(appt models.Appointment, reminder string) map[string]any {
	payload := map[string]any{
		"appointmentId": appt.ID,
		"reminderType":  reminder,
		"status":        string(appt.Status),
		"startTime":     appt.StartTime.UTC().Format(time.RFC3339),
		"endTime":       appt.EndTime.UTC().Format(time.RFC3339),
	}
	if appt.Location != "" {
		payload["location"] = appt.Location
	}
	return payload
}

// taskTransition describes a task moved from one status to another.
func (s *Sweeper) taskTransition(task models.Task, from models.TaskStatus, reminder, title, verb string) services.NotifyInput {
	payload := taskPayload(task, reminder)
	payload["oldStatus"] = string(from)
	payload["newStatus"] = string(task.Status)

	message := fmt.Sprintf("%q %s.", task.Title, verb)
	if task.DueDate != nil {
		message = fmt.Sprintf("%q (due %s) %s.", task.Title, s.display(*task.DueDate), verb)
	}
	return services.NotifyInput{
		UserID:   task.UserID,
		Type:     models.NotificationTypeTaskReminder,
		Title:    title,
		Message:  message,
		Payload:  payload,
		Resource: &services.ResourceRef{Kind: ResourceTask, ID: task.ID, ReminderKind: reminder},
	}
}

func (s *Sweeper) appointmentTransition(appt models.Appointment, from models.AppointmentStatus, reminder, title, verb string, at time.Time) services.NotifyInput {
	payload := appointmentPayload(appt, reminder)
	payload["oldStatus"] = string(from)
	payload["newStatus"] = string(appt.Status)

	return services.NotifyInput{
		UserID:   appt.UserID,
		Type:     models.NotificationTypeAppointmentReminder,
		Title:    title,
		Message:  fmt.Sprintf("%q %s (%s).", appt.Title, verb, s.display(at)),
		Payload:  payload,
		Resource: &services.ResourceRef{Kind: ResourceAppointment, ID: appt.ID, ReminderKind: reminder},
	}
}

// taskReminder describes a reminder about a task that is not changing state. refKind
// lets gated reminders record one reference per trigger hour.
func (s *Sweeper) taskReminder(task models.Task, reminder, refKind, title, message string) services.NotifyInput {
	if refKind == "" {
		refKind = reminder
	}
	return services.NotifyInput{
		UserID:   task.UserID,
		Type:     models.NotificationTypeTaskReminder,
		Title:    title,
		Message:  message,
		Payload:  taskPayload(task, reminder),
		Resource: &services.ResourceRef{Kind: ResourceTask, ID: task.ID, ReminderKind: refKind},
	}
}

func (s *Sweeper) appointmentReminder(appt models.Appointment, reminder, refKind, title, message string) services.NotifyInput {
	if refKind == "" {
		refKind = reminder
	}
	return services.NotifyInput{
		UserID:   appt.UserID,
		Type:     models.NotificationTypeAppointmentReminder,
		Title:    title,
		Message:  message,
		Payload:  appointmentPayload(appt, reminder),
		Resource: &services.ResourceRef{Kind: ResourceAppointment, ID: appt.ID, ReminderKind: refKind},
	}
}

func (s *Sweeper) appointmentWhere(appt models.Appointment) string {
	when := s.display(appt.StartTime)
	if appt.Location != "" {
		return fmt.Sprintf("%s at %s", when, appt.Location)
	}
	return when
}

func hourlyKind(reminder string, hour int) string {
	return fmt.Sprintf("%s@%02d", reminder, hour)
}
