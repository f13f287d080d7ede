package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-booking-backend/internal/model"
)

var (
	// ErrNotFound is returned when the addressed row does not exist (or no longer matches).
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a compare-and-swap write lost to a concurrent writer.
	ErrConflict = errors.New("write conflict")
)

// Store defines every database operation the engine performs.
// Writes that guard an invariant are conditional updates; callers inspect ErrConflict.
type Store interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx Store) error) error

	ListMachines(ctx context.Context) ([]model.Machine, error)
	GetMachine(ctx context.Context, id string) (model.Machine, error)
	OccupyMachine(ctx context.Context, id, userID, sessionID string, endTime time.Time) error
	FreeMachine(ctx context.Context, id, sessionID string) error
	ForceFreeMachine(ctx context.Context, id string) error
	SetMaintenance(ctx context.Context, id string, maintenance bool) error
	UpsertMachines(ctx context.Context, machines []model.Machine) error
	ListOccupiedMachines(ctx context.Context) ([]model.Machine, error)

	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (model.Session, error)
	ListInProgressSessions(ctx context.Context) ([]model.Session, error)
	ListActiveSessionsForUser(ctx context.Context, userID string) ([]model.Session, error)
	ListSessionsForUser(ctx context.Context, userID string, limit int) ([]model.Session, error)
	CloseSession(ctx context.Context, id string, c SessionClose) error
	SetReminderHandle(ctx context.Context, id, handle string) error

	GetUser(ctx context.Context, id string) (model.User, error)
	DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	CreditPoints(ctx context.Context, userID string, points int) error

	CreateReport(ctx context.Context, r *model.MaintenanceReport) error
}

// SessionClose carries the terminal fields written when a session leaves InProgress.
type SessionClose struct {
	Status        model.SessionStatus
	PointsAwarded int
	MinutesLate   float64
	Outcome       string
	At            time.Time
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside one database transaction; fn's store is bound to it.
func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// --- Machine registry ---

// ListMachines returns available machines first, then by type and index.
func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	err := s.db.WithContext(ctx).
		Order("available DESC").
		Order("type ASC").
		Order("machine_index ASC").
		Find(&machines).Error
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return machines, nil
}

func (s *gormStore) GetMachine(ctx context.Context, id string) (model.Machine, error) {
	var m model.Machine
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Machine{}, ErrNotFound
	}
	if err != nil {
		return model.Machine{}, fmt.Errorf("get machine %s: %w", id, err)
	}
	return m, nil
}

// OccupyMachine flips a free, non-maintenance machine to occupied. It returns
// ErrConflict when the machine is not free and ErrNotFound when it does not exist.
func (s *gormStore) OccupyMachine(ctx context.Context, id, userID, sessionID string, endTime time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&model.Machine{}).
		Where("id = ? AND available = ? AND maintenance = ? AND session_id IS NULL", id, true, false).
		Updates(map[string]any{
			"available":   false,
			"occupied_by": userID,
			"session_id":  sessionID,
			"end_time":    endTime,
		})
	if res.Error != nil {
		return fmt.Errorf("occupy machine %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := s.GetMachine(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

// FreeMachine clears occupancy only if the machine is still held by sessionID.
func (s *gormStore) FreeMachine(ctx context.Context, id, sessionID string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Machine{}).
		Where("id = ? AND session_id = ?", id, sessionID).
		Updates(freeColumns())
	if res.Error != nil {
		return fmt.Errorf("free machine %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ForceFreeMachine clears occupancy regardless of the holding session.
func (s *gormStore) ForceFreeMachine(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Machine{}).
		Where("id = ?", id).
		Updates(freeColumns())
	if res.Error != nil {
		return fmt.Errorf("force free machine %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func freeColumns() map[string]any {
	return map[string]any{
		"available":   true,
		"occupied_by": nil,
		"session_id":  nil,
		"end_time":    nil,
	}
}

func (s *gormStore) SetMaintenance(ctx context.Context, id string, maintenance bool) error {
	res := s.db.WithContext(ctx).
		Model(&model.Machine{}).
		Where("id = ?", id).
		Update("maintenance", maintenance)
	if res.Error != nil {
		return fmt.Errorf("set maintenance on %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertMachines inserts new machines and refreshes the catalog fields of existing ones.
// Occupancy columns are never touched.
func (s *gormStore) UpsertMachines(ctx context.Context, machines []model.Machine) error {
	if len(machines) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "machine_index", "location", "updated_at"}),
	}).Create(&machines).Error
}

// ListOccupiedMachines returns machines that are marked unavailable or hold a session.
func (s *gormStore) ListOccupiedMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	err := s.db.WithContext(ctx).
		Where("available = ? OR session_id IS NOT NULL", false).
		Find(&machines).Error
	if err != nil {
		return nil, fmt.Errorf("list occupied machines: %w", err)
	}
	return machines, nil
}

// --- Session store ---

func (s *gormStore) CreateSession(ctx context.Context, session *model.Session) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *gormStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	var session model.Session
	err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return session, nil
}

func (s *gormStore) ListInProgressSessions(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	err := s.db.WithContext(ctx).
		Where("status = ?", model.SessionInProgress).
		Order("end_time ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list in-progress sessions: %w", err)
	}
	return sessions, nil
}

func (s *gormStore) ListActiveSessionsForUser(ctx context.Context, userID string) ([]model.Session, error) {
	var sessions []model.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.SessionInProgress).
		Order("start_time ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list active sessions for %s: %w", userID, err)
	}
	return sessions, nil
}

func (s *gormStore) ListSessionsForUser(ctx context.Context, userID string, limit int) ([]model.Session, error) {
	var sessions []model.Session
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions for %s: %w", userID, err)
	}
	return sessions, nil
}

// CloseSession moves an InProgress session to a terminal state. Exactly one
// caller wins; everyone else gets ErrConflict.
func (s *gormStore) CloseSession(ctx context.Context, id string, c SessionClose) error {
	res := s.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ? AND status = ?", id, model.SessionInProgress).
		Updates(map[string]any{
			"status":         c.Status,
			"points_awarded": c.PointsAwarded,
			"minutes_late":   c.MinutesLate,
			"outcome":        c.Outcome,
			"end_time":       c.At,
			"settled_at":     c.At,
		})
	if res.Error != nil {
		return fmt.Errorf("close session %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *gormStore) SetReminderHandle(ctx context.Context, id, handle string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", id).
		Update("reminder_handle", handle)
	if res.Error != nil {
		return fmt.Errorf("set reminder handle on %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Ledger ---

func (s *gormStore) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// DebitBalance subtracts amount only if the balance covers it; otherwise ErrConflict.
func (s *gormStore) DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("debit balance of %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *gormStore) CreditPoints(ctx context.Context, userID string, points int) error {
	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("points", gorm.Expr("points + ?", points))
	if res.Error != nil {
		return fmt.Errorf("credit points to %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Reports ---

func (s *gormStore) CreateReport(ctx context.Context, r *model.MaintenanceReport) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("create maintenance report: %w", err)
	}
	return nil
}
