package api

import (
	"time"

	"laundry-booking-backend/internal/engine"
	"laundry-booking-backend/internal/model"
)

type machineView struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Index       int        `json:"index"`
	Label       string     `json:"label"`
	Location    string     `json:"location"`
	Available   bool       `json:"available"`
	Maintenance bool       `json:"maintenance"`
	OccupiedBy  *string    `json:"occupied_by,omitempty"`
	SessionID   *string    `json:"session_id,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

func newMachineView(m model.Machine) machineView {
	return machineView{
		ID:          m.ID,
		Type:        string(m.Type),
		Index:       m.Index,
		Label:       m.Label(),
		Location:    m.Location,
		Available:   m.Available,
		Maintenance: m.Maintenance,
		OccupiedBy:  m.OccupiedBy,
		SessionID:   m.SessionID,
		EndTime:     m.EndTime,
	}
}

type sessionView struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	MachineID       string    `json:"machine_id"`
	MachineType     string    `json:"machine_type"`
	MachineIndex    int       `json:"machine_index"`
	MachineLabel    string    `json:"machine_label"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int       `json:"duration_seconds"`
	EndTime         time.Time `json:"end_time"`
	Price           string    `json:"price"`
	Status          string    `json:"status"`
	PointsAwarded   int       `json:"points_awarded"`
	MinutesLate     *float64  `json:"minutes_late,omitempty"`
	Outcome         string    `json:"outcome,omitempty"`
}

func newSessionView(s model.Session) sessionView {
	return sessionView{
		ID:              s.ID,
		UserID:          s.UserID,
		MachineID:       s.MachineID,
		MachineType:     string(s.MachineType),
		MachineIndex:    s.MachineIndex,
		MachineLabel:    s.MachineLabel(),
		StartTime:       s.StartTime,
		DurationSeconds: s.DurationSeconds,
		EndTime:         s.EndTime,
		Price:           s.Price.StringFixed(2),
		Status:          string(s.Status),
		PointsAwarded:   s.PointsAwarded,
		MinutesLate:     s.MinutesLate,
		Outcome:         s.Outcome,
	}
}

type activeSessionView struct {
	sessionView
	RemainingSeconds int    `json:"remaining_seconds"`
	RemainingDisplay string `json:"remaining_display"`
}

func newActiveSessionView(a engine.ActiveSession) activeSessionView {
	return activeSessionView{
		sessionView:      newSessionView(a.Session),
		RemainingSeconds: a.RemainingSeconds,
		RemainingDisplay: a.RemainingDisplay,
	}
}

type settlementView struct {
	SessionID     string  `json:"session_id"`
	Outcome       string  `json:"outcome"`
	PointsAwarded int     `json:"points_awarded"`
	MinutesLate   float64 `json:"minutes_late"`
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	Replayed      bool    `json:"replayed"`
}

func newSettlementView(r *engine.SettlementResult) settlementView {
	return settlementView{
		SessionID:     r.SessionID,
		Outcome:       string(r.Outcome),
		PointsAwarded: r.PointsAwarded,
		MinutesLate:   r.MinutesLate,
		Status:        string(r.Status),
		Message:       r.Message,
		Replayed:      r.Replayed,
	}
}
