package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facility-booking-backend/internal/conflict"
)

type templateConflictsRequest struct {
	Candidates []conflict.Candidate `json:"candidates" binding:"required,min=1"`
}

// CheckTemplateConflicts handles POST /api/schedules/:schedule_id/conflicts.
// A 200 with an empty list means the candidates are clear; conflicts are data,
// not an error status.
func (h *Handler) CheckTemplateConflicts(c *gin.Context) {
	var req templateConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.detector.CheckTemplateConflicts(c.Request.Context(), c.Param("schedule_id"), req.Candidates)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": emptyIfNil(records)})
}

type areaConflictRequest struct {
	ScheduleID string `json:"scheduleId" binding:"required"`
	AreaID     string `json:"areaId" binding:"required"`
	DayOfWeek  int    `json:"dayOfWeek" binding:"required,min=1,max=7"`
	StartMin   int    `json:"startMin"`
	EndMin     int    `json:"endMin" binding:"required"`
	ExcludeID  string `json:"excludeBookingId"`
}

// CheckAreaConflicts handles POST /api/conflicts/area: a single template-layer
// probe, typically a drag or resize preview.
func (h *Handler) CheckAreaConflicts(c *gin.Context) {
	var req areaConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.detector.CheckAreaConflicts(c.Request.Context(),
		req.ScheduleID, req.AreaID, req.DayOfWeek, req.StartMin, req.EndMin, req.ExcludeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": emptyIfNil(records)})
}

type calendarConflictRequest struct {
	AreaID    string    `json:"areaId" binding:"required"`
	Date      time.Time `json:"date" binding:"required"`
	StartMin  int       `json:"startMin"`
	EndMin    int       `json:"endMin" binding:"required"`
	ExcludeID string    `json:"excludeBookingId"`
}

// CheckCalendarConflicts handles POST /api/conflicts/calendar.
func (h *Handler) CheckCalendarConflicts(c *gin.Context) {
	var req calendarConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.detector.CheckCalendarConflicts(c.Request.Context(),
		req.AreaID, req.Date, req.StartMin, req.EndMin, req.ExcludeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": emptyIfNil(records)})
}

func emptyIfNil(records []conflict.Record) []conflict.Record {
	if records == nil {
		return []conflict.Record{}
	}
	return records
}
