package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"laundry-booking-backend/internal/logger"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/store"
)

// ExpireDue expires every in-progress session whose scheduled end plus the
// configured grace has passed. Failures are logged and retried next call.
func (e *Engine) ExpireDue(ctx context.Context) (int, error) {
	sessions, err := e.store.ListInProgressSessions(ctx)
	if err != nil {
		return 0, err
	}

	now := e.now()
	expired := 0
	for _, s := range sessions {
		if now.Before(s.ScheduledEnd.Add(e.opts.ExpiryGrace)) {
			continue
		}
		ok, err := e.Expire(ctx, s.ID)
		if err != nil {
			e.log.Error("failed to expire session", "session_id", s.ID, "error", err)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// Reconcile frees machines left unavailable by a session that is missing or
// already terminal.
func (e *Engine) Reconcile(ctx context.Context) (int, error) {
	machines, err := e.store.ListOccupiedMachines(ctx)
	if err != nil {
		return 0, err
	}

	freed := 0
	for _, m := range machines {
		stale, err := e.isStale(ctx, m)
		if err != nil {
			e.log.Error("failed to inspect machine", "machine_id", m.ID, "error", err)
			continue
		}
		if !stale {
			continue
		}
		if m.SessionID != nil {
			err = e.store.FreeMachine(ctx, m.ID, *m.SessionID)
		} else {
			err = e.store.ForceFreeMachine(ctx, m.ID)
		}
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			e.log.Error("failed to free stale machine", "machine_id", m.ID, "error", err)
			continue
		}
		e.log.Warn("freed stale machine", "machine_id", m.ID)
		e.publishFreed(ctx, m.ID, m.Label(), e.now())
		freed++
	}
	return freed, nil
}

func (e *Engine) isStale(ctx context.Context, m model.Machine) (bool, error) {
	if m.SessionID == nil {
		return true, nil
	}
	s, err := e.store.GetSession(ctx, *m.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get session %s: %w", *m.SessionID, err)
	}
	return s.Status.Terminal(), nil
}

// Scheduler drives auto-expiry and reconciliation on a fixed interval.
type Scheduler struct {
	engine         *Engine
	interval       time.Duration
	reconcileEvery int
	log            logger.Logger
	ticks          int
}

func NewScheduler(e *Engine, interval time.Duration, reconcileEvery int, log logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		engine:         e,
		interval:       interval,
		reconcileEvery: reconcileEvery,
		log:            log,
	}
}

// Run ticks until ctx is cancelled. A reconciliation pass runs at startup.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("starting session scheduler", "interval", s.interval.String())
	if _, err := s.engine.Reconcile(ctx); err != nil {
		s.log.Error("reconciliation failed", "error", err)
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("session scheduler shutting down")
			return
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(s.interval)
		}
	}
}

// Tick performs one expiry pass, plus reconciliation every reconcileEvery ticks.
func (s *Scheduler) Tick(ctx context.Context) {
	s.ticks++
	if n, err := s.engine.ExpireDue(ctx); err != nil {
		s.log.Error("expiry pass failed", "error", err)
	} else if n > 0 {
		s.log.Info("expired sessions", "count", n)
	}

	if s.reconcileEvery > 0 && s.ticks%s.reconcileEvery == 0 {
		if n, err := s.engine.Reconcile(ctx); err != nil {
			s.log.Error("reconciliation failed", "error", err)
		} else if n > 0 {
			s.log.Info("reconciled machines", "count", n)
		}
	}
}
