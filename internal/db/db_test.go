package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/logger"
	"laundry-booking-backend/internal/model"
)

func TestInit_SQLiteMigratesAllTables(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:db_init_test?mode=memory&cache=shared",
	}

	gormDB, err := Init(cfg, logger.NewNop())
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	for _, m := range model.All() {
		assert.True(t, gormDB.Migrator().HasTable(m), "missing table for %T", m)
	}
	assert.True(t, gormDB.Migrator().HasTable("subscription_machine_mapping"))
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}
