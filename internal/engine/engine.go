// Package engine implements reservation, settlement and the session timer.
package engine

import (
	"context"
	"time"

	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/events"
	"laundry-booking-backend/internal/logger"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/pricing"
	"laundry-booking-backend/internal/store"
)

// Notifier schedules reminders with the notification dispatcher.
// Schedule returns an opaque handle that Cancel accepts.
type Notifier interface {
	Schedule(ctx context.Context, r model.Reminder) (string, error)
	Cancel(ctx context.Context, handle string) error
}

type nopNotifier struct{}

func (nopNotifier) Schedule(context.Context, model.Reminder) (string, error) { return "", nil }
func (nopNotifier) Cancel(context.Context, string) error                     { return nil }

// Options tunes engine behaviour that comes from configuration.
type Options struct {
	// ExpiryGrace is how long past its scheduled end an uncollected session stays open.
	ExpiryGrace time.Duration
	// Location is used to bucket session start times into time slots.
	Location *time.Location
}

// Engine coordinates reservations and settlements over a Store.
type Engine struct {
	store     store.Store
	policy    *pricing.Policy
	clock     clock.Clock
	notifier  Notifier
	publisher events.Publisher
	log       logger.Logger
	opts      Options
}

// New wires an Engine. A nil notifier or publisher disables that collaborator.
func New(st store.Store, policy *pricing.Policy, clk clock.Clock, notifier Notifier, publisher events.Publisher, log logger.Logger, opts Options) *Engine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Engine{
		store:     st,
		policy:    policy,
		clock:     clk,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
		opts:      opts,
	}
}

// Policy returns the pricing policy in use.
func (e *Engine) Policy() *pricing.Policy {
	return e.policy
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// publish is best-effort; failures are logged.
func (e *Engine) publish(ctx context.Context, ev events.SessionEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now()
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.log.Warn("failed to publish event", "type", ev.Type, "session_id", ev.SessionID, "error", err)
	}
}

func (e *Engine) publishFreed(ctx context.Context, m string, label string, at time.Time) {
	e.publish(ctx, events.SessionEvent{
		Type:         events.TypeMachineFreed,
		MachineID:    m,
		MachineLabel: label,
		OccurredAt:   at,
	})
}
