package engine

import (
	"context"
	"time"
)

// TimeSlot is a coarse part of the day used for usage statistics.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "Morning"
	SlotNoon      TimeSlot = "Noon"
	SlotAfternoon TimeSlot = "Afternoon"
	SlotEvening   TimeSlot = "Evening"
	SlotNight     TimeSlot = "Night"
)

// TimeSlots lists the slots in display order.
var TimeSlots = []TimeSlot{SlotMorning, SlotNoon, SlotAfternoon, SlotEvening, SlotNight}

// SlotFor buckets an instant by its local hour.
func SlotFor(t time.Time) TimeSlot {
	h := t.Hour()
	switch {
	case h >= 5 && h < 11:
		return SlotMorning
	case h >= 11 && h < 14:
		return SlotNoon
	case h >= 14 && h < 18:
		return SlotAfternoon
	case h >= 18 && h < 22:
		return SlotEvening
	default:
		return SlotNight
	}
}

// SlotCount is the number of sessions started within a slot.
type SlotCount struct {
	Slot  TimeSlot
	Count int
}

// Activity counts every session the user started, per time slot in the
// configured location. All slots are present, in TimeSlots order.
func (e *Engine) Activity(ctx context.Context, userID string) ([]SlotCount, error) {
	sessions, err := e.store.ListSessionsForUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[TimeSlot]int, len(TimeSlots))
	for _, s := range sessions {
		counts[SlotFor(s.StartTime.In(e.opts.Location))]++
	}
	out := make([]SlotCount, len(TimeSlots))
	for i, slot := range TimeSlots {
		out[i] = SlotCount{Slot: slot, Count: counts[slot]}
	}
	return out, nil
}
