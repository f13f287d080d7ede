// Package testutil builds throwaway sqlite databases for package tests.
package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/db"
	"laundry-booking-backend/internal/model"
)

// NewSQLite opens a private in-memory database with every table migrated.
func NewSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()
	gormDB, err := db.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gormDB
}

// SeedMachine inserts a free machine.
func SeedMachine(t *testing.T, gormDB *gorm.DB, id string, typ model.MachineType, index int) model.Machine {
	t.Helper()
	m := model.Machine{ID: id, Type: typ, Index: index, Location: "Block A", Available: true}
	require.NoError(t, gormDB.Create(&m).Error)
	return m
}

// SeedUser inserts a ledger row with the given balance.
func SeedUser(t *testing.T, gormDB *gorm.DB, id, balance string) model.User {
	t.Helper()
	u := model.User{ID: id, Balance: decimal.RequireFromString(balance)}
	require.NoError(t, gormDB.Create(&u).Error)
	return u
}

// Date returns a UTC instant on a fixed test day.
func Date(hour, min, sec int) time.Time {
	return time.Date(2025, 3, 14, hour, min, sec, 0, time.UTC)
}
