package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/lifeadmin/internal/models"
	"github.com/charlesng35/lifeadmin/internal/store"
)

// PromoteDueTasks moves PENDING tasks due by the end of today to IN_PROGRESS.
func (s *Sweeper) PromoteDueTasks(ctx context.Context) (Result, error) {
	w := s.windows()
	return s.transitionTasks(ctx, SweepTasksToInProgress,
		models.TaskStatusPending, models.TaskStatusInProgress,
		store.AtOrBefore(w.EndOfToday), w,
		ReminderStatusInProgress, "Task in progress", "is now in progress")
}

// CompleteOverdueTasks moves IN_PROGRESS tasks due by the end of yesterday to COMPLETED.
func (s *Sweeper) CompleteOverdueTasks(ctx context.Context) (Result, error) {
	w := s.windows()
	return s.transitionTasks(ctx, SweepOverdueTasksToCompleted,
		models.TaskStatusInProgress, models.TaskStatusCompleted,
		store.AtOrBefore(w.EndOfYesterday), w,
		ReminderStatusCompleted, "Task completed", "was marked completed")
}

func (s *Sweeper) transitionTasks(
	ctx context.Context,
	sweep string,
	from, to models.TaskStatus,
	due *store.TimeRange,
	w Windows,
	reminder, title, verb string,
) (Result, error) {
	res := Result{Sweep: sweep}
	tasks, err := s.gateway.FindTasks(ctx, store.TaskFilter{
		Statuses: []models.TaskStatus{from},
		Due:      due,
	})
	if err != nil {
		return res, fmt.Errorf("lifecycle: %s: %w", sweep, err)
	}
	res.Found = len(tasks)

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return s.finish(res), fmt.Errorf("lifecycle: %s: %w", sweep, err)
		}
		updated, err := s.gateway.UpdateTask(ctx, task.ID, store.TaskPatch{
			Status:       &to,
			ExpectStatus: &from,
			At:           w.Now,
		})
		if err != nil {
			if errors.Is(err, store.ErrStaleStatus) {
				s.log.Debug("task changed before transition", zap.String("sweep", sweep), zap.String("task_id", task.ID))
				continue
			}
			s.entityFailed(&res, ResourceTask, task.ID, err)
			continue
		}
		res.Updated++
		s.notify(ctx, &res, s.taskTransition(*updated, from, reminder, title, verb))
	}
	return s.finish(res), nil
}

// ConfirmAppointments moves SCHEDULED appointments starting by the end of today to CONFIRMED.
func (s *Sweeper) ConfirmAppointments(ctx context.Context) (Result, error) {
	w := s.windows()
	return s.transitionAppointments(ctx, SweepAppointmentsToConfirmed,
		models.AppointmentStatusScheduled, models.AppointmentStatusConfirmed,
		store.AppointmentFilter{Start: store.AtOrBefore(w.EndOfToday)},
		ReminderAppointmentConfirmed, "Appointment confirmed", "is confirmed",
		true,
	)
}

// CompleteAppointments moves CONFIRMED appointments that ended by the end of yesterday to COMPLETED.
func (s *Sweeper) CompleteAppointments(ctx context.Context) (Result, error) {
	w := s.windows()
	return s.transitionAppointments(ctx, SweepAppointmentsToCompleted,
		models.AppointmentStatusConfirmed, models.AppointmentStatusCompleted,
		store.AppointmentFilter{End: store.AtOrBefore(w.EndOfYesterday)},
		ReminderAppointmentCompleted, "Appointment completed", "has been completed",
		false,
	)
}

func (s *Sweeper) transitionAppointments(
	ctx context.Context,
	sweep string,
	from, to models.AppointmentStatus,
	filter store.AppointmentFilter,
	reminder, title, verb string,
	atStart bool,
) (Result, error) {
	res := Result{Sweep: sweep}
	filter.Statuses = []models.AppointmentStatus{from}
	appts, err := s.gateway.FindAppointments(ctx, filter)
	if err != nil {
		return res, fmt.Errorf("lifecycle: %s: %w", sweep, err)
	}
	res.Found = len(appts)

	for _, appt := range appts {
		if err := ctx.Err(); err != nil {
			return s.finish(res), fmt.Errorf("lifecycle: %s: %w", sweep, err)
		}
		updated, err := s.gateway.UpdateAppointment(ctx, appt.ID, store.AppointmentPatch{
			Status:       &to,
			ExpectStatus: &from,
		})
		if err != nil {
			if errors.Is(err, store.ErrStaleStatus) {
				s.log.Debug("appointment changed before transition", zap.String("sweep", sweep), zap.String("appointment_id", appt.ID))
				continue
			}
			s.entityFailed(&res, ResourceAppointment, appt.ID, err)
			continue
		}
		res.Updated++

		at := updated.EndTime
		if atStart {
			at = updated.StartTime
		}
		s.notify(ctx, &res, s.appointmentTransition(*updated, from, reminder, title, verb, at))
	}
	return s.finish(res), nil
}
