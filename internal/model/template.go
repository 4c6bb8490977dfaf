package model

import "time"

// ScheduleTemplate is a named weekly schedule owning a set of recurring
// booking templates. Different schedules are alternative plans and never
// conflict with each other.
type ScheduleTemplate struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	PlaceID   string    `gorm:"type:uuid;index;not null" json:"placeId"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	// Associations
	Bookings []BookingTemplate `gorm:"foreignKey:ScheduleTemplateID;constraint:OnDelete:CASCADE" json:"-"`
}

// BookingTemplate is one recurring weekly slot: an area held for a group on a
// day of week. DayOfWeek is 1..7 with Monday=1. Minutes are half-open
// [StartMin, EndMin) within [0, 1440).
type BookingTemplate struct {
	ID                 string    `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleTemplateID string    `gorm:"type:uuid;index;not null" json:"scheduleTemplateId"`
	AreaID             string    `gorm:"type:uuid;index;not null" json:"areaId"`
	GroupID            string    `gorm:"type:uuid;not null" json:"groupId"`
	DayOfWeek          int       `gorm:"not null" json:"dayOfWeek"`
	StartMin           int       `gorm:"not null" json:"startMin"`
	EndMin             int       `gorm:"not null" json:"endMin"`
	CreatedAt          time.Time `json:"-"`
	UpdatedAt          time.Time `json:"-"`
}
