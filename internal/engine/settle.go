package engine

import (
	"context"
	"errors"
	"fmt"

	"laundry-booking-backend/internal/events"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/pricing"
	"laundry-booking-backend/internal/store"
)

// Outcome classifies a settlement for user-facing messaging.
type Outcome string

const (
	OutcomeRewarded       Outcome = "rewarded"
	OutcomeTooLate        Outcome = "too_late"
	OutcomeCancelledEarly Outcome = "cancelled_early"
	OutcomeExpired        Outcome = "expired"
)

// OutcomeFor maps lateness to its outcome class.
func OutcomeFor(minutesLate float64) Outcome {
	switch {
	case minutesLate < 0:
		return OutcomeCancelledEarly
	case minutesLate > pricing.GraceMinutes:
		return OutcomeTooLate
	default:
		return OutcomeRewarded
	}
}

// Message is the text shown to the user for an outcome.
func (o Outcome) Message(points int) string {
	switch o {
	case OutcomeRewarded:
		return fmt.Sprintf("Laundry collected! You earned %d points.", points)
	case OutcomeTooLate:
		return "Laundry collected too late, no points awarded."
	case OutcomeCancelledEarly:
		return "Session cancelled before the timer ended."
	case OutcomeExpired:
		return "Session expired before the laundry was collected."
	}
	return ""
}

// SettlementResult describes a closed session. Replayed is set when the
// session had already been settled and the recorded result is returned.
type SettlementResult struct {
	SessionID     string
	Outcome       Outcome
	PointsAwarded int
	MinutesLate   float64
	Status        model.SessionStatus
	Message       string
	Replayed      bool
}

// Settle closes an in-progress session on behalf of its owner, awards points
// for timely collection and frees the machine. Repeated calls replay the result.
func (e *Engine) Settle(ctx context.Context, sessionID, userID string) (*SettlementResult, error) {
	s, err := e.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, ErrForbidden
	}
	if s.Status != model.SessionInProgress {
		return replay(s)
	}

	now := e.now()
	minutesLate := pricing.MinutesLate(s.ScheduledEnd, now)
	points := pricing.Points(minutesLate)
	outcome := OutcomeFor(minutesLate)
	status := model.SessionFinished
	if minutesLate < 0 {
		status = model.SessionCancelled
	}

	err = e.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CloseSession(ctx, s.ID, store.SessionClose{
			Status:        status,
			PointsAwarded: points,
			MinutesLate:   minutesLate,
			Outcome:       string(outcome),
			At:            now,
		}); err != nil {
			return err
		}
		if points > 0 {
			if err := tx.CreditPoints(ctx, s.UserID, points); err != nil {
				return err
			}
		}
		if err := tx.FreeMachine(ctx, s.MachineID, s.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	})
	if errors.Is(err, store.ErrConflict) {
		// Someone else closed it first.
		current, getErr := e.store.GetSession(ctx, s.ID)
		if getErr != nil {
			return nil, getErr
		}
		return replay(current)
	}
	if err != nil {
		return nil, err
	}

	e.log.Info("session settled",
		"session_id", s.ID,
		"user_id", s.UserID,
		"outcome", outcome,
		"minutes_late", minutesLate,
		"points_awarded", points,
	)

	e.cancelSessionReminders(ctx, s)
	e.publish(ctx, events.SessionEvent{
		Type:          events.TypeSessionSettled,
		SessionID:     s.ID,
		UserID:        s.UserID,
		MachineID:     s.MachineID,
		MachineLabel:  s.MachineLabel(),
		Status:        string(status),
		PointsAwarded: points,
		OccurredAt:    now,
	})
	e.publishFreed(ctx, s.MachineID, s.MachineLabel(), now)

	return &SettlementResult{
		SessionID:     s.ID,
		Outcome:       outcome,
		PointsAwarded: points,
		MinutesLate:   minutesLate,
		Status:        status,
		Message:       outcome.Message(points),
	}, nil
}

// replay rebuilds the result recorded when a session was settled by its owner.
func replay(s model.Session) (*SettlementResult, error) {
	if s.Status != model.SessionFinished && s.Status != model.SessionCancelled {
		return nil, ErrInvalidState
	}
	var minutesLate float64
	if s.MinutesLate != nil {
		minutesLate = *s.MinutesLate
	}
	outcome := Outcome(s.Outcome)
	if outcome == "" {
		outcome = OutcomeFor(minutesLate)
	}
	return &SettlementResult{
		SessionID:     s.ID,
		Outcome:       outcome,
		PointsAwarded: s.PointsAwarded,
		MinutesLate:   minutesLate,
		Status:        s.Status,
		Message:       outcome.Message(s.PointsAwarded),
		Replayed:      true,
	}, nil
}

// Expire closes an uncollected session without awarding points and frees its
// machine. Pending reminders stay scheduled so the owner still hears about the
// laundry. It reports false when the session was no longer in progress.
func (e *Engine) Expire(ctx context.Context, sessionID string) (bool, error) {
	s, err := e.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return false, ErrSessionNotFound
	}
	if err != nil {
		return false, err
	}
	if s.Status != model.SessionInProgress {
		return false, nil
	}

	now := e.now()
	err = e.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CloseSession(ctx, s.ID, store.SessionClose{
			Status:      model.SessionExpired,
			MinutesLate: pricing.MinutesLate(s.ScheduledEnd, now),
			Outcome:     string(OutcomeExpired),
			At:          now,
		}); err != nil {
			return err
		}
		if err := tx.FreeMachine(ctx, s.MachineID, s.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	})
	if errors.Is(err, store.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("expire session %s: %w", s.ID, err)
	}

	e.log.Info("session expired", "session_id", s.ID, "user_id", s.UserID, "machine_id", s.MachineID)
	e.publish(ctx, events.SessionEvent{
		Type:         events.TypeSessionExpired,
		SessionID:    s.ID,
		UserID:       s.UserID,
		MachineID:    s.MachineID,
		MachineLabel: s.MachineLabel(),
		Status:       string(model.SessionExpired),
		OccurredAt:   now,
	})
	e.publishFreed(ctx, s.MachineID, s.MachineLabel(), now)
	return true, nil
}
