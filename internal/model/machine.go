package model

import (
	"fmt"
	"strings"
	"time"
)

// MachineType is the kind of appliance.
type MachineType string

const (
	MachineTypeWasher MachineType = "washer"
	MachineTypeDryer  MachineType = "dryer"
)

// Valid reports whether t is a known machine type.
func (t MachineType) Valid() bool {
	return t == MachineTypeWasher || t == MachineTypeDryer
}

// Machine is a bookable washer or dryer together with its occupancy.
// Available is false exactly when SessionID is set.
type Machine struct {
	ID          string      `gorm:"primaryKey;size:64"`
	Type        MachineType `gorm:"size:16;not null;uniqueIndex:idx_machine_type_index"`
	Index       int         `gorm:"column:machine_index;not null;uniqueIndex:idx_machine_type_index"`
	Location    string      `gorm:"size:128"`
	Available   bool        `gorm:"not null"`
	OccupiedBy  *string     `gorm:"size:128"`
	SessionID   *string     `gorm:"size:36"`
	EndTime     *time.Time
	Maintenance bool `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Bookable reports whether the machine can take a new reservation right now.
func (m Machine) Bookable() bool {
	return m.Available && !m.Maintenance && m.SessionID == nil
}

// Label is the human-facing name, e.g. "Washer 3".
func (m Machine) Label() string {
	return MachineLabel(m.Type, m.Index)
}

// MachineLabel formats a machine type and index for display.
func MachineLabel(t MachineType, index int) string {
	name := string(t)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s %d", name, index)
}
