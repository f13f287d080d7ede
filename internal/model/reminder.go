package model

import "time"

// ReminderKind identifies which point of a session's timeline a reminder marks.
type ReminderKind string

const (
	ReminderNearExpiry ReminderKind = "near_expiry"
	ReminderExpired    ReminderKind = "expired"
	ReminderOverdue    ReminderKind = "overdue"
)

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderCancelled ReminderStatus = "cancelled"
)

// Reminder is a scheduled push notification.
type Reminder struct {
	ID        string         `gorm:"primaryKey;size:36"`
	UserID    string         `gorm:"size:128;not null;index"`
	SessionID string         `gorm:"size:36;index"`
	Kind      ReminderKind   `gorm:"size:16;not null"`
	FireAt    time.Time      `gorm:"not null;index"`
	Title     string         `gorm:"size:128;not null"`
	Body      string         `gorm:"size:512;not null"`
	Status    ReminderStatus `gorm:"size:16;not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
