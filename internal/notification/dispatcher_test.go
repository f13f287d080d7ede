package notification

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/logger"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/testutil"
)

func reminder(userID, sessionID string, kind model.ReminderKind, fireAt time.Time) model.Reminder {
	return model.Reminder{UserID: userID, SessionID: sessionID, Kind: kind, FireAt: fireAt, Title: string(kind), Body: "body " + string(kind)}
}

// exerciseQueue runs the same lifecycle against any Queue implementation.
func exerciseQueue(t *testing.T, q Queue) {
	t.Helper()
	ctx := context.Background()
	clk := clock.NewManual(testutil.Date(10, 0, 0))
	wp := NewWorkerPool(1, nil, &webpush.Options{}, logger.NewNop())
	d := NewDispatcher(q, wp, clk, logger.NewNop(), time.Second, 10)

	h1, err := d.Schedule(ctx, reminder("alice", "s1", model.ReminderNearExpiry, testutil.Date(10, 25, 0)))
	require.NoError(t, err)
	h2, err := d.Schedule(ctx, reminder("alice", "s1", model.ReminderExpired, testutil.Date(10, 30, 0)))
	require.NoError(t, err)
	h3, err := d.Schedule(ctx, reminder("alice", "s1", model.ReminderOverdue, testutil.Date(10, 40, 0)))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	n, err := d.PollOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.Set(testutil.Date(10, 30, 0))
	n, err = d.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	first := <-wp.Jobs()
	second := <-wp.Jobs()
	assert.Equal(t, "body near_expiry", first.Body)
	assert.Equal(t, "body expired", second.Body)
	assert.Equal(t, "alice", first.UserID)

	// Cancelling a handle that mixes sent and pending reminders only drops the pending one.
	require.NoError(t, d.Cancel(ctx, h1+","+h2+","+h3))
	clk.Set(testutil.Date(11, 0, 0))
	n, err = d.PollOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, wp.Jobs())
}

func TestDispatcher_GormQueue(t *testing.T) {
	db := testutil.NewSQLite(t)
	exerciseQueue(t, NewGormQueue(db))

	var statuses []model.ReminderStatus
	require.NoError(t, db.Model(&model.Reminder{}).Order("fire_at").Pluck("status", &statuses).Error)
	assert.Equal(t, []model.ReminderStatus{model.ReminderSent, model.ReminderSent, model.ReminderCancelled}, statuses)
}

func TestGormQueue_ClaimIsExclusive(t *testing.T) {
	db := testutil.NewSQLite(t)
	q := NewGormQueue(db)
	ctx := context.Background()
	r := reminder("alice", "s1", model.ReminderExpired, testutil.Date(10, 0, 0))
	r.ID = "r1"
	require.NoError(t, q.Push(ctx, r))

	first, err := q.ClaimDue(ctx, testutil.Date(10, 0, 0), 10)
	require.NoError(t, err)
	second, err := q.ClaimDue(ctx, testutil.Date(10, 0, 0), 10)
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Empty(t, second)
}

func TestDispatcher_RedisQueue(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	prefix := "test:" + t.Name() + ":" + time.Now().Format("150405.000000")
	exerciseQueue(t, NewRedisQueue(rdb, prefix))

	// Claimed and cancelled reminders leave no data keys behind.
	keys, err := rdb.Keys(context.Background(), prefix+":reminder:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDispatcher_ClaimsNoMoreThanThePoolCanTake(t *testing.T) {
	db := testutil.NewSQLite(t)
	q := NewGormQueue(db)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		r := reminder("alice", "s1", model.ReminderExpired, testutil.Date(10, 0, 0))
		r.ID = fmt.Sprintf("r%03d", i)
		require.NoError(t, q.Push(ctx, r))
	}

	wp := NewWorkerPool(1, nil, &webpush.Options{}, logger.NewNop())
	d := NewDispatcher(q, wp, clock.NewManual(testutil.Date(10, 0, 0)), logger.NewNop(), time.Second, 100)

	n, err := d.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, cap(wp.Jobs()), n)
	assert.Zero(t, wp.Free())

	var pending int64
	require.NoError(t, db.Model(&model.Reminder{}).Where("status = ?", model.ReminderPending).Count(&pending).Error)
	assert.Equal(t, int64(100-n), pending)

	// Nothing is claimed while the pool is full.
	n, err = d.PollOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for len(wp.Jobs()) > 0 {
		<-wp.Jobs()
	}
	n, err = d.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int(pending), n)

	require.NoError(t, db.Model(&model.Reminder{}).Where("status = ?", model.ReminderPending).Count(&pending).Error)
	assert.Zero(t, pending)
}

func TestGormQueue_ReleaseMakesReminderClaimable(t *testing.T) {
	db := testutil.NewSQLite(t)
	q := NewGormQueue(db)
	ctx := context.Background()
	r := reminder("alice", "s1", model.ReminderOverdue, testutil.Date(10, 0, 0))
	r.ID = "r1"
	require.NoError(t, q.Push(ctx, r))

	claimed, err := q.ClaimDue(ctx, testutil.Date(10, 0, 0), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, q.Release(ctx, claimed))

	again, err := q.ClaimDue(ctx, testutil.Date(10, 0, 0), 10)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "r1", again[0].ID)
}

func TestGormQueue_ClaimDueOrdersAndLimits(t *testing.T) {
	db := testutil.NewSQLite(t)
	q := NewGormQueue(db)
	ctx := context.Background()
	for i, at := range []time.Time{testutil.Date(10, 20, 0), testutil.Date(10, 5, 0), testutil.Date(10, 10, 0), testutil.Date(11, 0, 0)} {
		r := reminder("alice", "s1", model.ReminderExpired, at)
		r.ID = fmt.Sprintf("r%d", i)
		require.NoError(t, q.Push(ctx, r))
	}

	claimed, err := q.ClaimDue(ctx, testutil.Date(10, 30, 0), 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, "r1", claimed[0].ID)
	assert.Equal(t, "r2", claimed[1].ID)

	claimed, err = q.ClaimDue(ctx, testutil.Date(10, 30, 0), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "r0", claimed[0].ID)
}
