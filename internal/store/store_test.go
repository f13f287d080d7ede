package store

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/testutil"
)

// A helper function to create a mock postgres connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newSession(id, userID string, m model.Machine) *model.Session {
	start := testutil.Date(10, 0, 0)
	end := start.Add(30 * time.Minute)
	return &model.Session{
		ID:              id,
		UserID:          userID,
		MachineID:       m.ID,
		MachineType:     m.Type,
		MachineIndex:    m.Index,
		StartTime:       start,
		DurationSeconds: 1800,
		ScheduledEnd:    end,
		EndTime:         end,
		Price:           decimal.NewFromInt(1),
		Status:          model.SessionInProgress,
	}
}

func TestGormStore_ListMachinesOrdering(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := NewGormStore(db)
	ctx := context.Background()

	testutil.SeedMachine(t, db, "w2", model.MachineTypeWasher, 2)
	testutil.SeedMachine(t, db, "d1", model.MachineTypeDryer, 1)
	testutil.SeedMachine(t, db, "w1", model.MachineTypeWasher, 1)
	require.NoError(t, s.OccupyMachine(ctx, "d1", "u1", "s1", testutil.Date(11, 0, 0)))

	machines, err := s.ListMachines(ctx)
	require.NoError(t, err)
	ids := make([]string, len(machines))
	for i, m := range machines {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"w1", "w2", "d1"}, ids)
}

func TestGormStore_OccupyAndFree(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := NewGormStore(db)
	ctx := context.Background()
	testutil.SeedMachine(t, db, "w1", model.MachineTypeWasher, 1)

	require.NoError(t, s.OccupyMachine(ctx, "w1", "alice", "s1", testutil.Date(10, 30, 0)))

	m, err := s.GetMachine(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, m.Available)
	require.NotNil(t, m.SessionID)
	assert.Equal(t, "s1", *m.SessionID)
	assert.Equal(t, "alice", *m.OccupiedBy)

	err = s.OccupyMachine(ctx, "w1", "bob", "s2", testutil.Date(10, 30, 0))
	assert.ErrorIs(t, err, ErrConflict)

	// Only the holding session may free the machine.
	assert.ErrorIs(t, s.FreeMachine(ctx, "w1", "s2"), ErrNotFound)
	require.NoError(t, s.FreeMachine(ctx, "w1", "s1"))

	m, err = s.GetMachine(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, m.Available)
	assert.Nil(t, m.SessionID)
	assert.Nil(t, m.OccupiedBy)
	assert.Nil(t, m.EndTime)
}

func TestGormStore_OccupyUnknownMachine(t *testing.T) {
	s := NewGormStore(testutil.NewSQLite(t))
	err := s.OccupyMachine(context.Background(), "nope", "alice", "s1", testutil.Date(10, 0, 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_MaintenanceBlocksOccupy(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := NewGormStore(db)
	ctx := context.Background()
	testutil.SeedMachine(t, db, "w1", model.MachineTypeWasher, 1)

	require.NoError(t, s.SetMaintenance(ctx, "w1", true))
	assert.ErrorIs(t, s.OccupyMachine(ctx, "w1", "alice", "s1", testutil.Date(10, 0, 0)), ErrConflict)

	require.NoError(t, s.SetMaintenance(ctx, "w1", false))
	assert.NoError(t, s.OccupyMachine(ctx, "w1", "alice", "s1", testutil.Date(10, 0, 0)))
	assert.ErrorIs(t, s.SetMaintenance(ctx, "missing", true), ErrNotFound)
}

func TestGormStore_ConcurrentOccupyHasOneWinner(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := NewGormStore(db)
	ctx := context.Background()
	testutil.SeedMachine(t, db, "w1", model.MachineTypeWasher, 1)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.OccupyMachine(ctx, "w1", "user", string(rune('a'+i)), testutil.Date(10, 0, 0))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestGormStore_CloseSessionIsCompareAndSwap(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := NewGormStore(db)
	ctx := context.Background()
	m := testutil.SeedMachine(t, db, "w1", model.MachineTypeWasher, 1)
	require.NoError(t, s.CreateSession(ctx, newSession("s1", "alice", m)))

	at := testutil.Date(10, 33, 0)
	closing := SessionClose{Status: model.SessionFinished, PointsAwarded: 40, MinutesLate: 3, Outcome: "rewarded", At: at}
	require.NoError(t, s.CloseSession(ctx, "s1", closing))
	assert.ErrorIs(t, s.CloseSession(ctx, "s1", closing), ErrConflict)

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionFinished, got.Status)
	assert.Equal(t, 40, got.PointsAwarded)
	require.NotNil(t, got.MinutesLate)
	assert.InDelta(t, 3.0, *got.MinutesLate, 1e-9)
	assert.True(t, got.EndTime.Equal(at))
	require.NotNil(t, got.SettledAt)

	_, err = s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_SessionQueries(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := NewGormStore(db)
	ctx := context.Background()
	m := testutil.SeedMachine(t, db, "w1", model.MachineTypeWasher, 1)

	first := newSession("s1", "alice", m)
	second := newSession("s2", "alice", m)
	second.StartTime = first.StartTime.Add(time.Hour)
	other := newSession("s3", "bob", m)
	for _, sess := range []*model.Session{first, second, other} {
		require.NoError(t, s.CreateSession(ctx, sess))
	}
	require.NoError(t, s.CloseSession(ctx, "s1", SessionClose{Status: model.SessionCancelled, Outcome: "cancelled_early", At: testutil.Date(10, 5, 0)}))

	inProgress, err := s.ListInProgressSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, inProgress, 2)

	active, err := s.ListActiveSessionsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s2", active[0].ID)

	history, err := s.ListSessionsForUser(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "s2", history[0].ID)

	require.NoError(t, s.SetReminderHandle(ctx, "s2", "r1,r2"))
	got, err := s.GetSession(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "r1,r2", got.ReminderHandle)
}

func TestGormStore_Ledger(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := NewGormStore(db)
	ctx := context.Background()
	testutil.SeedUser(t, db, "alice", "1.50")

	require.NoError(t, s.DebitBalance(ctx, "alice", decimal.NewFromInt(1)))
	assert.ErrorIs(t, s.DebitBalance(ctx, "alice", decimal.NewFromInt(1)), ErrConflict)
	assert.ErrorIs(t, s.DebitBalance(ctx, "ghost", decimal.NewFromInt(1)), ErrConflict)

	require.NoError(t, s.CreditPoints(ctx, "alice", 40))
	require.NoError(t, s.CreditPoints(ctx, "alice", 2))
	assert.ErrorIs(t, s.CreditPoints(ctx, "ghost", 1), ErrNotFound)

	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.5").Equal(u.Balance), "balance %s", u.Balance)
	assert.Equal(t, 42, u.Points)

	_, err = s.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_WithTxRollsBack(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := NewGormStore(db)
	ctx := context.Background()
	testutil.SeedMachine(t, db, "w1", model.MachineTypeWasher, 1)
	testutil.SeedUser(t, db, "alice", "0")

	err := s.WithTx(ctx, func(tx Store) error {
		if err := tx.OccupyMachine(ctx, "w1", "alice", "s1", testutil.Date(10, 30, 0)); err != nil {
			return err
		}
		return tx.DebitBalance(ctx, "alice", decimal.NewFromInt(1))
	})
	assert.ErrorIs(t, err, ErrConflict)

	m, err := s.GetMachine(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, m.Available, "occupy must be rolled back with the failed debit")
}

func TestGormStore_UpsertMachinesKeepsOccupancy(t *testing.T) {
	db := testutil.NewSQLite(t)
	s := NewGormStore(db)
	ctx := context.Background()

	require.NoError(t, s.UpsertMachines(ctx, []model.Machine{
		{ID: "w1", Type: model.MachineTypeWasher, Index: 1, Location: "Block A", Available: true},
	}))
	require.NoError(t, s.OccupyMachine(ctx, "w1", "alice", "s1", testutil.Date(10, 30, 0)))
	require.NoError(t, s.UpsertMachines(ctx, []model.Machine{
		{ID: "w1", Type: model.MachineTypeWasher, Index: 1, Location: "Block B", Available: true},
	}))

	m, err := s.GetMachine(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "Block B", m.Location)
	assert.False(t, m.Available)

	occupied, err := s.ListOccupiedMachines(ctx)
	require.NoError(t, err)
	assert.Len(t, occupied, 1)

	require.NoError(t, s.ForceFreeMachine(ctx, "w1"))
	occupied, err = s.ListOccupiedMachines(ctx)
	require.NoError(t, err)
	assert.Empty(t, occupied)
}

func TestGormStore_Postgres_OccupyConflict(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "machines" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "machines" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "machine_index", "available"}).
			AddRow("w1", "washer", 1, false))

	err := s.OccupyMachine(context.Background(), "w1", "alice", "s1", testutil.Date(10, 0, 0))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Postgres_FreeNoop(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "machines" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.FreeMachine(context.Background(), "w1", "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
