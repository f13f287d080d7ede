// Package events publishes session lifecycle events to the configured bus.
package events

import (
	"context"
	"errors"
	"time"

	"laundry-booking-backend/internal/logger"
)

const (
	TypeSessionReserved = "session.reserved"
	TypeSessionSettled  = "session.settled"
	TypeSessionExpired  = "session.expired"
	TypeMachineFreed    = "machine.freed"
)

// SessionEvent is emitted after a committed state transition.
type SessionEvent struct {
	Type          string    `json:"type"`
	SessionID     string    `json:"session_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	MachineID     string    `json:"machine_id"`
	MachineLabel  string    `json:"machine_label,omitempty"`
	Status        string    `json:"status,omitempty"`
	PointsAwarded int       `json:"points_awarded"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev SessionEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, SessionEvent) error { return nil }
func (Nop) Close() error                                { return nil }

// LogPublisher writes events to the application log.
type LogPublisher struct {
	log logger.Logger
}

func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev SessionEvent) error {
	p.log.Info("session event",
		"type", ev.Type,
		"session_id", ev.SessionID,
		"user_id", ev.UserID,
		"machine_id", ev.MachineID,
		"status", ev.Status,
		"points_awarded", ev.PointsAwarded,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Fanout forwards each event to every wrapped publisher.
type Fanout struct {
	publishers []Publisher
}

func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

// Publish delivers to all publishers even if some fail; the errors are joined.
func (f *Fanout) Publish(ctx context.Context, ev SessionEvent) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
