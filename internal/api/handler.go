package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"laundry-booking-backend/internal/engine"
	"laundry-booking-backend/internal/logger"
	"laundry-booking-backend/internal/mw"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine  *engine.Engine
	db      *gorm.DB
	webpush *webpush.Options
	cache   *mw.ResponseCache
	log     logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(e *engine.Engine, db *gorm.DB, webpushOptions *webpush.Options, cache *mw.ResponseCache, log logger.Logger) *Handler {
	return &Handler{
		engine:  e,
		db:      db,
		webpush: webpushOptions,
		cache:   cache,
		log:     log,
	}
}

func (h *Handler) invalidate() {
	if h.cache != nil {
		h.cache.Flush()
	}
}

// Healthz reports whether the database is reachable.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request"})
}

// writeError maps engine errors to a status and a stable code.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, engine.ErrInvalidDuration):
		status, code = http.StatusBadRequest, "invalid_duration"
	case errors.Is(err, engine.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, engine.ErrMachineNotFound):
		status, code = http.StatusNotFound, "machine_not_found"
	case errors.Is(err, engine.ErrSessionNotFound):
		status, code = http.StatusNotFound, "session_not_found"
	case errors.Is(err, engine.ErrUnavailable):
		status, code = http.StatusConflict, "machine_unavailable"
	case errors.Is(err, engine.ErrAlreadyReserved):
		status, code = http.StatusConflict, "already_reserved"
	case errors.Is(err, engine.ErrInsufficientBalance):
		status, code = http.StatusPaymentRequired, "insufficient_balance"
	case errors.Is(err, engine.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, engine.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}
