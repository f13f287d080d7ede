package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"laundry-booking-backend/internal/mw"
)

type reservationRequest struct {
	MachineID       string `json:"machine_id" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`
}

// CreateReservation books a machine for the caller.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "machine_id and duration_seconds are required")
		return
	}

	res, err := h.engine.Reserve(c.Request.Context(), mw.UserID(c), req.MachineID, req.DurationSeconds)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.invalidate()

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	c.JSON(http.StatusCreated, gin.H{
		"session":  newSessionView(res.Session),
		"price":    res.Price.StringFixed(2),
		"warnings": warnings,
	})
}

// SettleSession collects or cancels the caller's session.
func (h *Handler) SettleSession(c *gin.Context) {
	res, err := h.engine.Settle(c.Request.Context(), c.Param("id"), mw.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !res.Replayed {
		h.invalidate()
	}
	c.JSON(http.StatusOK, newSettlementView(res))
}

func (h *Handler) ActiveSessions(c *gin.Context) {
	active, err := h.engine.ActiveSessions(c.Request.Context(), mw.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]activeSessionView, len(active))
	for i, a := range active {
		out[i] = newActiveSessionView(a)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// SessionHistory lists the caller's sessions, newest first.
func (h *Handler) SessionHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sessions, err := h.engine.History(c.Request.Context(), mw.UserID(c), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]sessionView, len(sessions))
	for i, s := range sessions {
		out[i] = newSessionView(s)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}
