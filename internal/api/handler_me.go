package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-booking-backend/internal/mw"
)

// GetMe returns the caller's balance and points.
func (h *Handler) GetMe(c *gin.Context) {
	l, err := h.engine.Ledger(c.Request.Context(), mw.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": l.UserID,
		"balance": l.Balance.StringFixed(2),
		"points":  l.Points,
	})
}

type slotView struct {
	Slot  string `json:"slot"`
	Count int    `json:"count"`
}

// GetActivity returns how often the caller books in each part of the day.
func (h *Handler) GetActivity(c *gin.Context) {
	slots, err := h.engine.Activity(c.Request.Context(), mw.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]slotView, len(slots))
	for i, s := range slots {
		out[i] = slotView{Slot: string(s.Slot), Count: s.Count}
	}
	c.JSON(http.StatusOK, gin.H{"slots": out})
}
