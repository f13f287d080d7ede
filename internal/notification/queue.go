package notification

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"laundry-booking-backend/internal/model"
)

// Queue stores scheduled reminders until they are due.
type Queue interface {
	Push(ctx context.Context, r model.Reminder) error
	// Cancel withdraws pending reminders. Unknown or already sent ids are ignored.
	Cancel(ctx context.Context, ids []string) error
	// ClaimDue hands out up to limit reminders due at now. Each reminder is
	// claimed at most once across concurrent callers.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error)
	// Release returns claimed reminders that could not be delivered to the queue.
	Release(ctx context.Context, reminders []model.Reminder) error
}

type gormQueue struct {
	db *gorm.DB
}

// NewGormQueue keeps reminders in the reminders table.
func NewGormQueue(db *gorm.DB) Queue {
	return &gormQueue{db: db}
}

func (q *gormQueue) Push(ctx context.Context, r model.Reminder) error {
	r.Status = model.ReminderPending
	if err := q.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (q *gormQueue) Cancel(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := q.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id IN ? AND status = ?", ids, model.ReminderPending).
		Update("status", model.ReminderCancelled).Error
	if err != nil {
		return fmt.Errorf("cancel reminders: %w", err)
	}
	return nil
}

func (q *gormQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error) {
	query := q.db.WithContext(ctx).
		Where("status = ? AND fire_at <= ?", model.ReminderPending, now).
		Order("fire_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var due []model.Reminder
	if err := query.Find(&due).Error; err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}

	var claimed []model.Reminder
	for _, r := range due {
		res := q.db.WithContext(ctx).
			Model(&model.Reminder{}).
			Where("id = ? AND status = ?", r.ID, model.ReminderPending).
			Update("status", model.ReminderSent)
		if res.Error != nil {
			return claimed, fmt.Errorf("claim reminder %s: %w", r.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			r.Status = model.ReminderSent
			claimed = append(claimed, r)
		}
	}
	return claimed, nil
}

func (q *gormQueue) Release(ctx context.Context, reminders []model.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	ids := make([]string, len(reminders))
	for i, r := range reminders {
		ids[i] = r.ID
	}
	err := q.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id IN ? AND status = ?", ids, model.ReminderSent).
		Update("status", model.ReminderPending).Error
	if err != nil {
		return fmt.Errorf("release reminders: %w", err)
	}
	return nil
}
