package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"facility-booking-backend/internal/model"
)

// GetLeafSet handles GET /api/areas/:area_id/leaves. An unknown area returns
// an empty list, mirroring the fail-open coverage policy.
func (h *Handler) GetLeafSet(c *gin.Context) {
	areaID := c.Param("area_id")
	set, err := h.coverage.LeafSet(c.Request.Context(), areaID)
	if err != nil {
		h.fail(c, err)
		return
	}
	leafIDs := make([]string, 0, len(set))
	for id := range set {
		leafIDs = append(leafIDs, id)
	}
	sort.Strings(leafIDs)
	c.JSON(http.StatusOK, gin.H{"areaId": areaID, "leafIds": leafIDs})
}

// RebuildCoverage handles POST /api/places/:place_id/coverage/rebuild.
func (h *Handler) RebuildCoverage(c *gin.Context) {
	placeID := c.Param("place_id")
	if err := h.coverage.Rebuild(c.Request.Context(), placeID); err != nil {
		h.fail(c, err)
		return
	}
	h.flushResponseCache()
	c.Status(http.StatusNoContent)
}

type createAreaRequest struct {
	PlaceID      string   `json:"placeId" binding:"required"`
	ParentAreaID *string  `json:"parentAreaId"`
	Name         string   `json:"name" binding:"required"`
	LeafIDs      []string `json:"leafIds"`
}

// CreateArea handles POST /api/areas. The place's coverage closure is
// recomputed in the same request so LeafSet answers include the new area.
func (h *Handler) CreateArea(c *gin.Context) {
	var req createAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	area := model.Area{
		ID:           uuid.NewString(),
		PlaceID:      req.PlaceID,
		ParentAreaID: req.ParentAreaID,
		Name:         req.Name,
	}
	ctx := c.Request.Context()
	if err := h.store.CreateArea(ctx, area, req.LeafIDs); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.coverage.Rebuild(ctx, req.PlaceID); err != nil {
		h.fail(c, err)
		return
	}
	h.flushResponseCache()
	c.JSON(http.StatusCreated, area)
}

type reparentAreaRequest struct {
	NewParentAreaID *string `json:"newParentAreaId"`
}

// ReparentArea handles POST /api/areas/:area_id/reparent, moving a subtree and
// recomputing coverage for the owning place.
func (h *Handler) ReparentArea(c *gin.Context) {
	areaID := c.Param("area_id")
	var req reparentAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	area, err := h.store.GetArea(ctx, areaID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.store.ReparentArea(ctx, areaID, req.NewParentAreaID); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.coverage.Rebuild(ctx, area.PlaceID); err != nil {
		h.fail(c, err)
		return
	}
	h.flushResponseCache()
	c.Status(http.StatusNoContent)
}
