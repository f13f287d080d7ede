package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"laundry-booking-backend/internal/mw"
)

// RouterOptions carries the HTTP-layer settings.
type RouterOptions struct {
	JWTSecret       []byte
	RateLimitPerSec float64
	RateLimitBurst  int
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(h.log))

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.Use(mw.RateLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitBurst))
	api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

	authed := api.Group("")
	authed.Use(mw.Auth(opts.JWTSecret))
	{
		var caching []gin.HandlerFunc
		if h.cache != nil {
			caching = append(caching, h.cache.Middleware())
		}
		authed.GET("/machines", append(caching, h.ListMachines)...)
		authed.GET("/machines/:id", h.GetMachine)

		authed.POST("/reservations", h.CreateReservation)
		authed.GET("/sessions", h.SessionHistory)
		authed.GET("/sessions/active", h.ActiveSessions)
		authed.POST("/sessions/:id/settle", h.SettleSession)

		authed.GET("/me", h.GetMe)
		authed.GET("/me/activity", h.GetActivity)

		authed.POST("/reports", h.FileReport)

		authed.GET("/subscriptions", h.GetSubscription)
		authed.PUT("/subscriptions", h.PutSubscription)
		authed.DELETE("/subscriptions", h.DeleteSubscription)

		admin := authed.Group("/admin", mw.RequireRole(mw.RoleAdmin))
		admin.POST("/machines/:id/maintenance", h.SetMaintenance)
	}

	return r
}
