package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the externally owned ledger row. Only Balance and Points are written here.
type User struct {
	ID        string          `gorm:"primaryKey;size:128"`
	Balance   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Points    int             `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
