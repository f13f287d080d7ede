package model

import "time"

// MaintenanceReport is a user-filed fault report for a machine.
type MaintenanceReport struct {
	ID          string  `gorm:"primaryKey;size:36"`
	MachineID   string  `gorm:"size:64;not null;index"`
	UserID      string  `gorm:"size:128;not null"`
	IssueType   string  `gorm:"size:64;not null"`
	Description string  `gorm:"size:2000;not null"`
	ImageURL    *string `gorm:"size:512"`
	Status      string  `gorm:"size:16;not null"`
	CreatedAt   time.Time
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Machine{},
		&User{},
		&Session{},
		&Reminder{},
		&PushSubscription{},
		&MaintenanceReport{},
	}
}
