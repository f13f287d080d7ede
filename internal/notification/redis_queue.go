package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"laundry-booking-backend/internal/model"
)

// redisQueue keeps reminder ids in a sorted set scored by fire time and the
// reminder bodies in plain keys.
type redisQueue struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisQueue keeps reminders in redis under prefix.
func NewRedisQueue(rdb *redis.Client, prefix string) Queue {
	return &redisQueue{rdb: rdb, prefix: prefix}
}

func (q *redisQueue) dueKey() string {
	return q.prefix + ":due"
}

func (q *redisQueue) dataKey(id string) string {
	return q.prefix + ":reminder:" + id
}

func (q *redisQueue) Push(ctx context.Context, r model.Reminder) error {
	r.Status = model.ReminderPending
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.dataKey(r.ID), data, 0)
		pipe.ZAdd(ctx, q.dueKey(), redis.Z{Score: float64(r.FireAt.UnixMilli()), Member: r.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("push reminder %s: %w", r.ID, err)
	}
	return nil
}

func (q *redisQueue) Cancel(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	keys := make([]string, len(ids))
	for i, id := range ids {
		members[i] = id
		keys[i] = q.dataKey(id)
	}
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.dueKey(), members...)
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel reminders: %w", err)
	}
	return nil
}

func (q *redisQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, q.dueKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}

	var claimed []model.Reminder
	for _, id := range ids {
		// Whoever removes the member owns the reminder.
		n, err := q.rdb.ZRem(ctx, q.dueKey(), id).Result()
		if err != nil {
			return claimed, fmt.Errorf("claim reminder %s: %w", id, err)
		}
		if n == 0 {
			continue
		}
		data, err := q.rdb.GetDel(ctx, q.dataKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return claimed, fmt.Errorf("load reminder %s: %w", id, err)
		}

		var r model.Reminder
		if err := json.Unmarshal(data, &r); err != nil {
			return claimed, fmt.Errorf("decode reminder %s: %w", id, err)
		}
		r.Status = model.ReminderSent
		claimed = append(claimed, r)
	}
	return claimed, nil
}

func (q *redisQueue) Release(ctx context.Context, reminders []model.Reminder) error {
	var errs []error
	for _, r := range reminders {
		if err := q.Push(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
