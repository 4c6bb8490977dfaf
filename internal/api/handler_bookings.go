package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facility-booking-backend/internal/booking"
	"facility-booking-backend/internal/model"
)

type instantiateRequest struct {
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// InstantiateSchedule handles POST /api/schedules/:schedule_id/instantiate.
// Returns the created bookings; an empty list means every candidate already
// existed.
func (h *Handler) InstantiateSchedule(c *gin.Context) {
	var req instantiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.instantiator.Run(c.Request.Context(), c.Param("schedule_id"), req.StartDate, req.EndDate)
	if err != nil {
		h.fail(c, err)
		return
	}
	if created == nil {
		created = []model.CalendarBooking{}
	}
	c.JSON(http.StatusCreated, gin.H{"created": created})
}

// CreateCalendarBooking handles POST /api/calendar-bookings. The conflict
// check runs inside the insert transaction; collisions come back as 409 with
// the conflicting bookings.
func (h *Handler) CreateCalendarBooking(c *gin.Context) {
	var req booking.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := h.bookings.CreateCalendarBooking(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// DeleteInstantiated handles DELETE /api/schedules/:schedule_id/calendar-bookings,
// the explicit cleanup of bookings a schedule instantiation produced.
func (h *Handler) DeleteInstantiated(c *gin.Context) {
	deleted, err := h.bookings.RemoveInstantiated(c.Request.Context(), c.Param("schedule_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
