package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-booking-backend/internal/engine"
	"laundry-booking-backend/internal/mw"
)

type reportRequest struct {
	MachineID   string `json:"machine_id" binding:"required"`
	IssueType   string `json:"issue_type" binding:"required"`
	Description string `json:"description" binding:"required"`
	ImageURL    string `json:"image_url"`
}

// FileReport records a fault report from the caller.
func (h *Handler) FileReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "machine_id, issue_type and description are required")
		return
	}

	report, err := h.engine.FileReport(c.Request.Context(), mw.UserID(c), engine.ReportRequest{
		MachineID:   req.MachineID,
		IssueType:   req.IssueType,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          report.ID,
		"machine_id":  report.MachineID,
		"issue_type":  report.IssueType,
		"description": report.Description,
		"image_url":   report.ImageURL,
		"status":      report.Status,
		"created_at":  report.CreatedAt,
	})
}

type maintenanceRequest struct {
	Maintenance *bool `json:"maintenance" binding:"required"`
}

// SetMaintenance toggles a machine's maintenance flag. Admin only.
func (h *Handler) SetMaintenance(c *gin.Context) {
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "maintenance is required")
		return
	}

	m, err := h.engine.SetMaintenance(c.Request.Context(), c.Param("id"), *req.Maintenance)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.invalidate()
	c.JSON(http.StatusOK, newMachineView(m))
}
