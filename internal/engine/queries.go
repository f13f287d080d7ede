package engine

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/pricing"
	"laundry-booking-backend/internal/store"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// ActiveSession is an in-progress session with its countdown.
type ActiveSession struct {
	model.Session
	RemainingSeconds int
	RemainingDisplay string
}

// Ledger is a user's balance and points. Users without a record have zeros.
type Ledger struct {
	UserID  string
	Balance decimal.Decimal
	Points  int
}

func (e *Engine) ListMachines(ctx context.Context) ([]model.Machine, error) {
	return e.store.ListMachines(ctx)
}

func (e *Engine) GetMachine(ctx context.Context, id string) (model.Machine, error) {
	m, err := e.store.GetMachine(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Machine{}, ErrMachineNotFound
	}
	return m, err
}

// ActiveSessions returns the user's in-progress sessions with the time left.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]ActiveSession, error) {
	sessions, err := e.store.ListActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	out := make([]ActiveSession, 0, len(sessions))
	for _, s := range sessions {
		remaining := pricing.Remaining(s.ScheduledEnd, now)
		out = append(out, ActiveSession{
			Session:          s,
			RemainingSeconds: remaining,
			RemainingDisplay: pricing.FormatRemaining(remaining),
		})
	}
	return out, nil
}

// History returns the user's sessions newest first. limit is clamped to
// [1, MaxHistoryLimit]; zero selects the default.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]model.Session, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return e.store.ListSessionsForUser(ctx, userID, limit)
}

func (e *Engine) Ledger(ctx context.Context, userID string) (Ledger, error) {
	u, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Ledger{UserID: userID, Balance: decimal.Zero}, nil
	}
	if err != nil {
		return Ledger{}, err
	}
	return Ledger{UserID: userID, Balance: u.Balance, Points: u.Points}, nil
}
