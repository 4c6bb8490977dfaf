package model

import "time"

// CalendarBooking is a concrete dated booking. SourceTemplateID is a weak
// provenance reference to the ScheduleTemplate it was instantiated from;
// deleting that schedule does not delete the booking (cleanup is an explicit
// separate operation).
type CalendarBooking struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	AreaID           string    `gorm:"type:uuid;index;not null" json:"areaId"`
	GroupID          string    `gorm:"type:uuid;not null" json:"groupId"`
	Date             time.Time `gorm:"type:date;index;not null" json:"date"`
	StartMin         int       `gorm:"not null" json:"startMin"`
	EndMin           int       `gorm:"not null" json:"endMin"`
	SourceTemplateID *string   `gorm:"type:uuid;index" json:"sourceTemplateId"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

// Midnight truncates t to its calendar date in UTC. All booking dates are
// stored normalized this way so exact-tuple comparisons are stable.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
