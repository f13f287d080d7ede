package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a reservation.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionFinished   SessionStatus = "finished"
	SessionCancelled  SessionStatus = "cancelled"
	SessionExpired    SessionStatus = "expired"
)

// Terminal reports whether no further transition is allowed out of s.
func (s SessionStatus) Terminal() bool {
	return s == SessionFinished || s == SessionCancelled || s == SessionExpired
}

// Session is one reservation of a machine by a user. Rows are never deleted.
type Session struct {
	ID              string          `gorm:"primaryKey;size:36"`
	UserID          string          `gorm:"size:128;not null;index"`
	MachineID       string          `gorm:"size:64;not null;index"`
	MachineType     MachineType     `gorm:"size:16;not null"`
	MachineIndex    int             `gorm:"not null"`
	StartTime       time.Time       `gorm:"not null;index"`
	DurationSeconds int             `gorm:"not null"`
	ScheduledEnd    time.Time       `gorm:"not null"`
	EndTime         time.Time       `gorm:"not null"` // scheduled end until settled, then the settlement instant
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status          SessionStatus   `gorm:"size:16;not null;index"`
	PointsAwarded   int             `gorm:"not null"`
	MinutesLate     *float64
	Outcome         string `gorm:"size:32"`
	ReminderHandle  string `gorm:"size:512"`
	SettledAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MachineLabel is the display name of the booked machine.
func (s Session) MachineLabel() string {
	return MachineLabel(s.MachineType, s.MachineIndex)
}
