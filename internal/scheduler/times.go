package scheduler

import (
	"fmt"
	"time"

	"stride/internal/models"
	"stride/internal/notify"
)

// Reminders fire at a fixed local time-of-day; sweeps are anchored the same
// way.
const (
	ReminderHour    = 9 // due-date and pre-due reminders, weekly summary
	StreakSweepHour = 8 // daily streak/inactivity sweep
)

func atHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

// DueDateFireTime is the due date at the fixed local reminder time.
func DueDateFireTime(due time.Time) time.Time {
	return atHour(due, ReminderHour)
}

// PreDueFireTime is one calendar day before the due date at the same time.
func PreDueFireTime(due time.Time) time.Time {
	return atHour(due.AddDate(0, 0, -1), ReminderHour)
}

// NextDaily returns the next occurrence of the given local hour after now.
func NextDaily(now time.Time, hour int) time.Time {
	next := atHour(now, hour)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextWeekly returns the next occurrence of the given weekday and hour after
// now.
func NextWeekly(now time.Time, weekday time.Weekday, hour int) time.Time {
	next := atHour(now, hour)
	for next.Weekday() != weekday || !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ScheduleTaskReminders registers the due-date and pre-due reminders for a
// task. It cancels both tags first so a changed due date replaces the stale
// registrations instead of stacking a second one. Fire times already in the
// past are not scheduled.
func (s *Scheduler) ScheduleTaskReminders(t models.Task) {
	s.Cancel(t.ID, KindDueDate)
	s.Cancel(t.ID, KindPreDue)

	if t.Completed {
		return
	}
	due, ok := t.DueDateTime(time.Local)
	if !ok {
		return
	}

	s.mu.Lock()
	now := s.now()
	s.mu.Unlock()

	if t.EnableDueDateNotifications {
		if at := DueDateFireTime(due); at.After(now) {
			s.Schedule(t.ID, KindDueDate, at, notify.Payload{
				Title: "Task due today",
				Body:  fmt.Sprintf("%q is due today", t.Title),
				Tag:   Tag(t.ID, KindDueDate),
				Data:  map[string]any{"taskId": t.ID},
			})
		}
	}
	if t.EnablePreDueNotifications {
		if at := PreDueFireTime(due); at.After(now) {
			s.Schedule(t.ID, KindPreDue, at, notify.Payload{
				Title: "Task due tomorrow",
				Body:  fmt.Sprintf("%q is due tomorrow", t.Title),
				Tag:   Tag(t.ID, KindPreDue),
				Data:  map[string]any{"taskId": t.ID},
			})
		}
	}
}

// SweepOverdueTasks scans the task list and schedules an immediate-window
// overdue notification for every incomplete task whose due date is strictly
// before today. The sweep only reads the list; at most one overdue
// notification per task per day is produced.
func (s *Scheduler) SweepOverdueTasks(tasks []models.Task) int {
	s.mu.Lock()
	now := s.now()
	s.mu.Unlock()
	s.pruneFired(now)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	scheduled := 0
	for _, t := range tasks {
		if t.Completed || t.ID == "" {
			continue
		}
		due, ok := t.DueDateTime(now.Location())
		if !ok || !due.Before(today) {
			continue
		}
		tag := Tag(t.ID, KindOverdue)
		if s.firedOn(tag, now) || s.IsScheduled(t.ID, KindOverdue) {
			continue
		}
		s.Schedule(t.ID, KindOverdue, now, notify.Payload{
			Title: "Task overdue",
			Body:  fmt.Sprintf("%q was due on %s", t.Title, t.DueDate),
			Tag:   tag,
			Data:  map[string]any{"taskId": t.ID},
		})
		scheduled++
	}
	return scheduled
}
