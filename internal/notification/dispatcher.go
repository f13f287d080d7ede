package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/events"
	"laundry-booking-backend/internal/logger"
	"laundry-booking-backend/internal/model"
)

// Dispatcher accepts reminders, polls for due ones and hands them to the worker pool.
type Dispatcher struct {
	queue    Queue
	pool     *WorkerPool
	clock    clock.Clock
	log      logger.Logger
	interval time.Duration
	batch    int
}

func NewDispatcher(queue Queue, pool *WorkerPool, clk clock.Clock, log logger.Logger, interval time.Duration, batch int) *Dispatcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Dispatcher{
		queue:    queue,
		pool:     pool,
		clock:    clk,
		log:      log,
		interval: interval,
		batch:    batch,
	}
}

// Schedule stores r and returns its id as the handle.
func (d *Dispatcher) Schedule(ctx context.Context, r model.Reminder) (string, error) {
	r.ID = uuid.NewString()
	r.FireAt = r.FireAt.UTC()
	if err := d.queue.Push(ctx, r); err != nil {
		return "", err
	}
	d.log.Debug("reminder scheduled", "reminder_id", r.ID, "session_id", r.SessionID, "kind", r.Kind, "fire_at", r.FireAt)
	return r.ID, nil
}

// Cancel withdraws every reminder in a comma separated handle.
func (d *Dispatcher) Cancel(ctx context.Context, handle string) error {
	var ids []string
	for _, id := range strings.Split(handle, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return d.queue.Cancel(ctx, ids)
}

// Run polls for due reminders until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("starting reminder dispatcher", "interval", d.interval.String())

	timer := time.NewTimer(d.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("reminder dispatcher shutting down")
			return
		case <-timer.C:
			if _, err := d.PollOnce(ctx); err != nil {
				d.log.Error("reminder poll failed", "error", err)
			}
			timer.Reset(d.interval)
		}
	}
}

// PollOnce claims as many due reminders as the worker pool can take and
// queues their push jobs. Reminders the pool rejects go back to the queue.
func (d *Dispatcher) PollOnce(ctx context.Context) (int, error) {
	limit := d.pool.Free()
	if d.batch > 0 && d.batch < limit {
		limit = d.batch
	}
	if limit <= 0 {
		return 0, nil
	}

	due, err := d.queue.ClaimDue(ctx, d.clock.Now().UTC(), limit)
	var rejected []model.Reminder
	for _, r := range due {
		if dispatchErr := d.pool.Dispatch(Job{UserID: r.UserID, Title: r.Title, Body: r.Body}); dispatchErr != nil {
			rejected = append(rejected, r)
		}
	}
	if len(rejected) > 0 {
		d.log.Warn("worker pool full, returning reminders to the queue", "count", len(rejected))
		if releaseErr := d.queue.Release(ctx, rejected); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}
	queued := len(due) - len(rejected)
	if err != nil {
		return queued, fmt.Errorf("claim due reminders: %w", err)
	}
	return queued, nil
}

// Watcher turns machine.freed events into pushes for the machine's watchers.
type Watcher struct {
	pool *WorkerPool
}

func NewWatcher(pool *WorkerPool) *Watcher {
	return &Watcher{pool: pool}
}

func (w *Watcher) Publish(_ context.Context, ev events.SessionEvent) error {
	if ev.Type != events.TypeMachineFreed {
		return nil
	}
	label := ev.MachineLabel
	if label == "" {
		label = ev.MachineID
	}
	return w.pool.Dispatch(Job{
		MachineID: ev.MachineID,
		Title:     "Machine available",
		Body:      fmt.Sprintf("%s is available", label),
	})
}

func (w *Watcher) Close() error { return nil }
