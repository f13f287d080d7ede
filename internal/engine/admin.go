package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/store"
)

const ReportStatusPending = "Pending"

// ReportRequest is a user's fault report for a machine.
type ReportRequest struct {
	MachineID   string
	IssueType   string
	Description string
	ImageURL    string
}

// FileReport records a maintenance report against an existing machine.
func (e *Engine) FileReport(ctx context.Context, userID string, req ReportRequest) (*model.MaintenanceReport, error) {
	if strings.TrimSpace(req.IssueType) == "" || strings.TrimSpace(req.Description) == "" {
		return nil, ErrInvalidInput
	}
	if _, err := e.GetMachine(ctx, req.MachineID); err != nil {
		return nil, err
	}

	report := &model.MaintenanceReport{
		ID:          uuid.NewString(),
		MachineID:   req.MachineID,
		UserID:      userID,
		IssueType:   strings.TrimSpace(req.IssueType),
		Description: strings.TrimSpace(req.Description),
		Status:      ReportStatusPending,
		CreatedAt:   e.now(),
	}
	if req.ImageURL != "" {
		report.ImageURL = &req.ImageURL
	}
	if err := e.store.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	e.log.Info("maintenance report filed", "report_id", report.ID, "machine_id", req.MachineID, "issue_type", report.IssueType)
	return report, nil
}

// SetMaintenance toggles a machine's maintenance flag. Occupancy is left alone.
func (e *Engine) SetMaintenance(ctx context.Context, machineID string, maintenance bool) (model.Machine, error) {
	err := e.store.SetMaintenance(ctx, machineID, maintenance)
	if errors.Is(err, store.ErrNotFound) {
		return model.Machine{}, ErrMachineNotFound
	}
	if err != nil {
		return model.Machine{}, err
	}
	e.log.Info("machine maintenance updated", "machine_id", machineID, "maintenance", maintenance)
	return e.GetMachine(ctx, machineID)
}
