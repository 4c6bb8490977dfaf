package model

import "time"

// Place represents a physical facility that owns an area tree and its leaves.
type Place struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`

	// Associations
	Areas  []Area `gorm:"foreignKey:PlaceID" json:"-"`
	Leaves []Leaf `gorm:"foreignKey:PlaceID" json:"-"`
}
