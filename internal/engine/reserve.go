package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"laundry-booking-backend/internal/events"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/store"
)

// WarningRemindersUnavailable is reported when the reservation succeeded without reminders.
const WarningRemindersUnavailable = "reminders could not be scheduled"

// ReserveResult is the outcome of a successful reservation.
type ReserveResult struct {
	Session  model.Session
	Price    decimal.Decimal
	Warnings []string
}

// Reserve books machineID for userID. The balance debit, the session insert and
// the machine occupy commit together or not at all.
func (e *Engine) Reserve(ctx context.Context, userID, machineID string, durationSeconds int) (*ReserveResult, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	price, err := e.policy.Price(durationSeconds)
	if err != nil {
		return nil, err
	}

	now := e.now()
	end := now.Add(time.Duration(durationSeconds) * time.Second)
	session := model.Session{
		ID:              uuid.NewString(),
		UserID:          userID,
		MachineID:       machineID,
		StartTime:       now,
		DurationSeconds: durationSeconds,
		ScheduledEnd:    end,
		EndTime:         end,
		Price:           price,
		Status:          model.SessionInProgress,
	}

	err = e.store.WithTx(ctx, func(tx store.Store) error {
		m, err := tx.GetMachine(ctx, machineID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrMachineNotFound
		}
		if err != nil {
			return err
		}
		if m.Maintenance {
			return ErrUnavailable
		}
		if !m.Bookable() {
			return ErrAlreadyReserved
		}

		balance := decimal.Zero
		user, err := tx.GetUser(ctx, userID)
		switch {
		case err == nil:
			balance = user.Balance
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		if balance.LessThan(price) {
			return ErrInsufficientBalance
		}

		session.MachineType = m.Type
		session.MachineIndex = m.Index
		if err := tx.OccupyMachine(ctx, m.ID, userID, session.ID, end); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrAlreadyReserved
			}
			return err
		}
		if err := tx.DebitBalance(ctx, userID, price); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrInsufficientBalance
			}
			return err
		}
		return tx.CreateSession(ctx, &session)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("reservation created",
		"session_id", session.ID,
		"user_id", userID,
		"machine_id", machineID,
		"duration_seconds", durationSeconds,
		"price", price.String(),
	)

	result := &ReserveResult{Session: session, Price: price}
	handle, err := e.scheduleReminders(ctx, session)
	if err == nil && handle != "" {
		err = e.attachReminders(ctx, session.ID, handle)
	}
	if err != nil {
		e.log.Warn("reservation has no reminders", "session_id", session.ID, "error", err)
		result.Warnings = append(result.Warnings, WarningRemindersUnavailable)
	} else {
		result.Session.ReminderHandle = handle
	}

	e.publish(ctx, events.SessionEvent{
		Type:         events.TypeSessionReserved,
		SessionID:    session.ID,
		UserID:       userID,
		MachineID:    machineID,
		MachineLabel: session.MachineLabel(),
		Status:       string(session.Status),
		OccurredAt:   now,
	})
	return result, nil
}

// attachReminders stores handle on the session. Reminders that cannot be
// attached, or whose session was settled while they were being scheduled,
// are cancelled.
func (e *Engine) attachReminders(ctx context.Context, sessionID, handle string) error {
	if err := e.store.SetReminderHandle(ctx, sessionID, handle); err != nil {
		return errors.Join(fmt.Errorf("store reminder handle: %w", err), e.notifier.Cancel(ctx, handle))
	}
	current, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		e.log.Warn("failed to recheck session after scheduling reminders", "session_id", sessionID, "error", err)
		return nil
	}
	if current.Status != model.SessionInProgress {
		e.cancelReminders(ctx, current)
	}
	return nil
}
