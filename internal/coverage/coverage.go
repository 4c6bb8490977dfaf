// Package coverage resolves areas to the atomic leaves they occupy and keeps
// the AreaCoverage closure table in sync with the area tree.
package coverage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"facility-booking-backend/internal/model"
)

// Source is the slice of the store the index needs.
type Source interface {
	ListAreasByPlace(ctx context.Context, placeID string) ([]model.Area, error)
	ListDirectAssignments(ctx context.Context, placeID string) ([]model.AreaLeaf, error)
	ReplaceCoverage(ctx context.Context, placeID string, rows []model.AreaCoverage) error
	CoverageLeafIDs(ctx context.Context, areaID string) ([]string, error)
}

// Index answers LeafSet queries from the precomputed closure table. The table
// is read-mostly, so results are cached in-process; Rebuild flushes the cache.
type Index struct {
	src    Source
	cache  *cache.Cache
	logger *zap.Logger
}

// New creates a coverage index. cacheTTL bounds how stale a LeafSet answer may
// be when the closure is mutated by another process sharing the store.
func New(src Source, cacheTTL time.Duration, logger *zap.Logger) *Index {
	return &Index{
		src:    src,
		cache:  cache.New(cacheTTL, 2*cacheTTL),
		logger: logger,
	}
}

// LeafSet returns every leaf the area transitively covers. An unknown area or
// an area with no coverage rows yields an empty set, not an error: a malformed
// area occupies nothing and never blocks bookings.
func (ix *Index) LeafSet(ctx context.Context, areaID string) (map[string]struct{}, error) {
	if v, ok := ix.cache.Get(areaID); ok {
		return v.(map[string]struct{}), nil
	}
	leafIDs, err := ix.src.CoverageLeafIDs(ctx, areaID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(leafIDs))
	for _, id := range leafIDs {
		set[id] = struct{}{}
	}
	ix.cache.SetDefault(areaID, set)
	return set, nil
}

// Rebuild recomputes the closure for every area under a place from the tree
// structure and the direct leaf assignments, then replaces the stored rows.
// It is idempotent and is the recovery path for coverage drift.
func (ix *Index) Rebuild(ctx context.Context, placeID string) error {
	areas, err := ix.src.ListAreasByPlace(ctx, placeID)
	if err != nil {
		return err
	}
	assignments, err := ix.src.ListDirectAssignments(ctx, placeID)
	if err != nil {
		return err
	}

	rows := closureRows(areas, assignments)
	if err := ix.src.ReplaceCoverage(ctx, placeID, rows); err != nil {
		return err
	}
	ix.cache.Flush()
	ix.logger.Info("coverage rebuilt",
		zap.String("place_id", placeID),
		zap.Int("areas", len(areas)),
		zap.Int("coverage_rows", len(rows)))
	return nil
}

// closureRows computes coverage bottom-up: a node's set is its own direct
// leaves unioned with its children's sets. Output is sorted for deterministic
// rebuilds.
func closureRows(areas []model.Area, assignments []model.AreaLeaf) []model.AreaCoverage {
	direct := make(map[string][]string, len(areas))
	for _, a := range assignments {
		direct[a.AreaID] = append(direct[a.AreaID], a.LeafID)
	}
	children := make(map[string][]string, len(areas))
	var roots []string
	for _, a := range areas {
		if a.ParentAreaID != nil {
			children[*a.ParentAreaID] = append(children[*a.ParentAreaID], a.ID)
		} else {
			roots = append(roots, a.ID)
		}
	}

	cover := make(map[string]map[string]struct{}, len(areas))
	var walk func(areaID string) map[string]struct{}
	walk = func(areaID string) map[string]struct{} {
		set := make(map[string]struct{})
		for _, leafID := range direct[areaID] {
			set[leafID] = struct{}{}
		}
		for _, childID := range children[areaID] {
			for leafID := range walk(childID) {
				set[leafID] = struct{}{}
			}
		}
		cover[areaID] = set
		return set
	}
	for _, rootID := range roots {
		walk(rootID)
	}

	var rows []model.AreaCoverage
	for areaID, set := range cover {
		for leafID := range set {
			rows = append(rows, model.AreaCoverage{AreaID: areaID, LeafID: leafID})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AreaID != rows[j].AreaID {
			return rows[i].AreaID < rows[j].AreaID
		}
		return rows[i].LeafID < rows[j].LeafID
	})
	return rows
}

// Intersects reports whether the two areas contend for at least one leaf.
func (ix *Index) Intersects(ctx context.Context, areaA, areaB string) (bool, error) {
	setA, err := ix.LeafSet(ctx, areaA)
	if err != nil {
		return false, fmt.Errorf("leaf set of %s: %w", areaA, err)
	}
	if len(setA) == 0 {
		return false, nil
	}
	setB, err := ix.LeafSet(ctx, areaB)
	if err != nil {
		return false, fmt.Errorf("leaf set of %s: %w", areaB, err)
	}
	small, large := setA, setB
	if len(setB) < len(setA) {
		small, large = setB, setA
	}
	for leafID := range small {
		if _, ok := large[leafID]; ok {
			return true, nil
		}
	}
	return false, nil
}
