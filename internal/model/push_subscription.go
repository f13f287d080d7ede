package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	UserID    string    `gorm:"size:128;not null;index"`
	CreatedAt time.Time `gorm:"not null"`

	// Machines the subscriber wants to hear about when they become available.
	Machines []*Machine `gorm:"many2many:subscription_machine_mapping;"`
}
