package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"laundry-booking-backend/internal/model"
)

const (
	nearExpiryLead = 5 * time.Minute
	overdueDelay   = 10 * time.Minute
)

// ReminderPlan returns the reminders a session should receive, in firing order.
// The near-expiry notice is only planned for sessions longer than five minutes.
func ReminderPlan(s model.Session) []model.Reminder {
	duration := time.Duration(s.DurationSeconds) * time.Second
	end := s.StartTime.Add(duration)
	label := s.MachineLabel()

	var plan []model.Reminder
	if duration > nearExpiryLead {
		plan = append(plan, model.Reminder{
			Kind:   model.ReminderNearExpiry,
			FireAt: end.Add(-nearExpiryLead),
			Title:  "Almost done",
			Body:   fmt.Sprintf("5 minutes left on %s", label),
		})
	}
	plan = append(plan,
		model.Reminder{
			Kind:   model.ReminderExpired,
			FireAt: end,
			Title:  "Laundry done",
			Body:   fmt.Sprintf("Your laundry on %s is done! Please collect it.", label),
		},
		model.Reminder{
			Kind:   model.ReminderOverdue,
			FireAt: end.Add(overdueDelay),
			Title:  "Laundry waiting",
			Body:   fmt.Sprintf("Your laundry on %s has been waiting 10 minutes", label),
		},
	)
	for i := range plan {
		plan[i].UserID = s.UserID
		plan[i].SessionID = s.ID
	}
	return plan
}

// scheduleReminders submits the session's plan and returns a combined handle.
// On failure the reminders already scheduled are cancelled again.
func (e *Engine) scheduleReminders(ctx context.Context, s model.Session) (string, error) {
	var handles []string
	for _, r := range ReminderPlan(s) {
		h, err := e.notifier.Schedule(ctx, r)
		if err != nil {
			if len(handles) > 0 {
				err = errors.Join(err, e.notifier.Cancel(ctx, strings.Join(handles, ",")))
			}
			return "", fmt.Errorf("schedule %s reminder: %w", r.Kind, err)
		}
		if h != "" {
			handles = append(handles, h)
		}
	}
	return strings.Join(handles, ","), nil
}

// cancelSessionReminders cancels using the stored handle, which Reserve may
// have written after s was loaded.
func (e *Engine) cancelSessionReminders(ctx context.Context, s model.Session) {
	current, err := e.store.GetSession(ctx, s.ID)
	if err != nil {
		e.log.Warn("failed to reload session for reminder cancel", "session_id", s.ID, "error", err)
		current = s
	}
	e.cancelReminders(ctx, current)
}

func (e *Engine) cancelReminders(ctx context.Context, s model.Session) {
	if s.ReminderHandle == "" {
		return
	}
	if err := e.notifier.Cancel(ctx, s.ReminderHandle); err != nil {
		e.log.Warn("failed to cancel reminders", "session_id", s.ID, "error", err)
	}
}
