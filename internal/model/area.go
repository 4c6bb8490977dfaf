package model

import "time"

// Leaf is the smallest atomic bookable resource (one lane, one quarter-court).
// A leaf is never composed of other resources.
type Leaf struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	PlaceID   string    `gorm:"type:uuid;index;not null" json:"placeId"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Area is a node in a strict tree of bookable zones. An area may span several
// leaves: "half pool" spans two lanes. ParentAreaID is nil for roots.
type Area struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	PlaceID      string    `gorm:"type:uuid;index;not null" json:"placeId"`
	ParentAreaID *string   `gorm:"type:uuid;index" json:"parentAreaId"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// AreaLeaf is the explicit direct assignment of a leaf to an area. It feeds
// coverage recomputation; queries go through AreaCoverage instead.
type AreaLeaf struct {
	AreaID string `gorm:"type:uuid;primaryKey" json:"areaId"`
	LeafID string `gorm:"type:uuid;primaryKey" json:"leafId"`
}

func (AreaLeaf) TableName() string { return "area_leaves" }

// AreaCoverage is the closure table: one row per (area, leaf) the area
// transitively occupies. For every area A,
// coverage(A) = directLeaves(A) ∪ coverage(child) for every child of A.
// Rows are rebuilt from the tree whenever area structure changes.
type AreaCoverage struct {
	AreaID string `gorm:"type:uuid;primaryKey" json:"areaId"`
	LeafID string `gorm:"type:uuid;primaryKey" json:"leafId"`
}

func (AreaCoverage) TableName() string { return "area_coverage" }
