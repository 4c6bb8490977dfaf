package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"facility-booking-backend/internal/booking"
	"facility-booking-backend/internal/conflict"
	"facility-booking-backend/internal/coverage"
	"facility-booking-backend/internal/instantiate"
	"facility-booking-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store        store.Store
	coverage     *coverage.Index
	detector     *conflict.Detector
	instantiator *instantiate.Instantiator
	bookings     *booking.Service
	logger       *zap.Logger

	// respCache memoizes GET leaf-set responses; NewRouter installs it and
	// coverage mutations flush it so stale closures are never served.
	respCache *cache.Cache
}

// flushResponseCache drops memoized leaf-set responses after a coverage
// mutation.
func (h *Handler) flushResponseCache() {
	if h.respCache != nil {
		h.respCache.Flush()
	}
}

// NewHandler creates a new API handler.
func NewHandler(
	st store.Store,
	cov *coverage.Index,
	det *conflict.Detector,
	inst *instantiate.Instantiator,
	bookings *booking.Service,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:        st,
		coverage:     cov,
		detector:     det,
		instantiator: inst,
		bookings:     bookings,
		logger:       logger,
	}
}

// fail maps core errors onto HTTP statuses: validation failures are 422,
// missing entities 404, booking collisions 409 with the conflict list, and
// anything else a logged 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var vErr *store.ValidationError
	var cErr *booking.ConflictError
	switch {
	case errors.As(err, &vErr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":  vErr.Error(),
			"entity": vErr.Entity,
			"ids":    vErr.IDs,
		})
	case errors.As(err, &cErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     cErr.Error(),
			"conflicts": cErr.Records,
		})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
