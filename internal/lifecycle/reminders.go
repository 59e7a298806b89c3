package lifecycle

import (
	"context"
	"fmt"

	"github.com/charlesng35/lifeadmin/internal/models"
	"github.com/charlesng35/lifeadmin/internal/services"
	"github.com/charlesng35/lifeadmin/internal/store"
)

// AlertOverdueTasks reminds owners of active tasks whose due date has passed.
func (s *Sweeper) AlertOverdueTasks(ctx context.Context) (Result, error) {
	w := s.windows()
	res := Result{Sweep: SweepOverdueTaskAlert}
	tasks, err := s.gateway.FindTasks(ctx, store.TaskFilter{
		Statuses: models.ActiveTaskStatuses,
		Due:      store.Before(w.Now),
	})
	if err != nil {
		return res, fmt.Errorf("lifecycle: %s: %w", res.Sweep, err)
	}
	res.Found = len(tasks)

	for _, task := range tasks {
		input := s.taskReminder(task, ReminderOverdue, "", "Task overdue",
			fmt.Sprintf("%q was due %s.", task.Title, s.display(*task.DueDate)))
		if s.notify(ctx, &res, input) {
			res.Updated++
		}
	}
	return s.finish(res), nil
}

// AlertTasksDueSoon reminds owners of active tasks due tomorrow.
func (s *Sweeper) AlertTasksDueSoon(ctx context.Context) (Result, error) {
	w := s.windows()
	res := Result{Sweep: SweepDueSoonAlert}
	tasks, err := s.gateway.FindTasks(ctx, store.TaskFilter{
		Statuses: models.ActiveTaskStatuses,
		Due:      store.Within(w.StartOfTomorrow, w.StartOfDayAfter),
	})
	if err != nil {
		return res, fmt.Errorf("lifecycle: %s: %w", res.Sweep, err)
	}
	res.Found = len(tasks)

	for _, task := range tasks {
		input := s.taskReminder(task, ReminderDueSoon, "", "Task due soon",
			fmt.Sprintf("%q is due %s.", task.Title, s.display(*task.DueDate)))
		if s.notify(ctx, &res, input) {
			res.Updated++
		}
	}
	return s.finish(res), nil
}

// AlertUpcomingAppointments reminds owners of scheduled appointments starting in the
// upcoming window, one to two hours from now by default.
func (s *Sweeper) AlertUpcomingAppointments(ctx context.Context) (Result, error) {
	w := s.windows()
	res := Result{Sweep: SweepUpcomingAppointmentAlert}
	appts, err := s.gateway.FindAppointments(ctx, store.AppointmentFilter{
		Statuses: []models.AppointmentStatus{models.AppointmentStatusScheduled},
		Start:    store.Within(w.Now.Add(s.upcomingFrom), w.Now.Add(s.upcomingUntil)),
	})
	if err != nil {
		return res, fmt.Errorf("lifecycle: %s: %w", res.Sweep, err)
	}
	res.Found = len(appts)

	for _, appt := range appts {
		input := s.appointmentReminder(appt, ReminderUpcoming, "", "Upcoming appointment",
			fmt.Sprintf("%q starts %s.", appt.Title, s.appointmentWhere(appt)))
		if s.notify(ctx, &res, input) {
			res.Updated++
		}
	}
	return s.finish(res), nil
}

// RemindDayBefore reminds owners of active tasks and appointments falling tomorrow. It
// only fires during the configured trigger hours; any other hour is a no-op.
func (s *Sweeper) RemindDayBefore(ctx context.Context) (Result, error) {
	w := s.windows()
	res, skip := gated(Result{Sweep: SweepDayBeforeReminder}, w.Hour(), s.dayBeforeHours)
	if skip {
		return res, nil
	}
	return s.remindWindow(ctx, res, store.Within(w.StartOfTomorrow, w.StartOfDayAfter),
		ReminderDayBefore, hourlyKind(ReminderDayBefore, w.Hour()),
		"Due tomorrow", "is due tomorrow", "Appointment tomorrow", "is tomorrow")
}

// RemindDueToday reminds owners of active tasks and appointments falling today. It only
// fires during the configured trigger hours.
func (s *Sweeper) RemindDueToday(ctx context.Context) (Result, error) {
	w := s.windows()
	res, skip := gated(Result{Sweep: SweepDueTodayReminder}, w.Hour(), s.dueTodayHours)
	if skip {
		return res, nil
	}
	return s.remindWindow(ctx, res, store.Within(w.StartOfToday, w.StartOfTomorrow),
		ReminderDueToday, hourlyKind(ReminderDueToday, w.Hour()),
		"Due today", "is due today", "Appointment today", "is today")
}

func (s *Sweeper) remindWindow(
	ctx context.Context,
	res Result,
	window *store.TimeRange,
	reminder, refKind string,
	taskTitle, taskVerb, apptTitle, apptVerb string,
) (Result, error) {
	tasks, err := s.gateway.FindTasks(ctx, store.TaskFilter{
		Statuses: models.ActiveTaskStatuses,
		Due:      window,
	})
	if err != nil {
		return res, fmt.Errorf("lifecycle: %s: tasks: %w", res.Sweep, err)
	}
	appts, err := s.gateway.FindAppointments(ctx, store.AppointmentFilter{
		Statuses: models.ActiveAppointmentStatuses,
		Start:    window,
	})
	if err != nil {
		return res, fmt.Errorf("lifecycle: %s: appointments: %w", res.Sweep, err)
	}
	res.Found = len(tasks) + len(appts)

	inputs := make([]services.NotifyInput, 0, res.Found)
	for _, task := range tasks {
		inputs = append(inputs, s.taskReminder(task, reminder, refKind, taskTitle,
			fmt.Sprintf("%q %s (%s).", task.Title, taskVerb, s.display(*task.DueDate))))
	}
	for _, appt := range appts {
		inputs = append(inputs, s.appointmentReminder(appt, reminder, refKind, apptTitle,
			fmt.Sprintf("%q %s, %s.", appt.Title, apptVerb, s.appointmentWhere(appt))))
	}

	for _, input := range inputs {
		if s.notify(ctx, &res, input) {
			res.Updated++
		}
	}
	return s.finish(res), nil
}
