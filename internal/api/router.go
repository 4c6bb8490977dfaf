package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"facility-booking-backend/config"
	"facility-booking-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)
	h.respCache = cacheStore

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/areas/:area_id/leaves", caching, h.GetLeafSet)
		api.POST("/areas", h.CreateArea)
		api.POST("/areas/:area_id/reparent", h.ReparentArea)
		api.POST("/places/:place_id/coverage/rebuild", h.RebuildCoverage)

		api.POST("/schedules/:schedule_id/conflicts", h.CheckTemplateConflicts)
		api.POST("/conflicts/area", h.CheckAreaConflicts)
		api.POST("/conflicts/calendar", h.CheckCalendarConflicts)

		api.POST("/schedules/:schedule_id/instantiate", h.InstantiateSchedule)
		api.DELETE("/schedules/:schedule_id/calendar-bookings", h.DeleteInstantiated)
		api.POST("/calendar-bookings", h.CreateCalendarBooking)
	}

	return r
}
