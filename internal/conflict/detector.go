package conflict

import (
	"context"
	"fmt"
	"sort"
	"time"

	"facility-booking-backend/internal/model"
	"facility-booking-backend/internal/store"
)

// Source is the slice of the store the detector reads its comparison
// populations and display names from. Populations are always pre-scoped:
// template bookings to one schedule and day of week, calendar bookings to one
// date. Planned (template) and actual (calendar) layers never see each other.
type Source interface {
	TemplateBookingsForDay(ctx context.Context, scheduleID string, dayOfWeek int) ([]model.BookingTemplate, error)
	CalendarBookingsOn(ctx context.Context, date time.Time) ([]model.CalendarBooking, error)
	AreaNames(ctx context.Context, areaIDs []string) (map[string]string, error)
	GroupNames(ctx context.Context, groupIDs []string) (map[string]string, error)
}

// LeafResolver resolves an area to the leaves it occupies.
type LeafResolver interface {
	Intersects(ctx context.Context, areaA, areaB string) (bool, error)
}

// Candidate is a booking position being probed for conflicts. ExcludeID, when
// set, names the candidate's own stored record so a move or resize is never
// compared against itself.
type Candidate struct {
	AreaID    string `json:"areaId"`
	DayOfWeek int    `json:"dayOfWeek,omitempty"`
	StartMin  int    `json:"startMin"`
	EndMin    int    `json:"endMin"`
	ExcludeID string `json:"excludeId,omitempty"`
}

// Record describes one existing booking the candidate collides with, carrying
// enough display data for "X conflicts with Y at Z" without further lookups.
type Record struct {
	BookingID string     `json:"bookingId"`
	AreaID    string     `json:"areaId"`
	AreaName  string     `json:"areaName"`
	GroupID   string     `json:"groupId"`
	GroupName string     `json:"groupName"`
	DayOfWeek int        `json:"dayOfWeek,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	StartMin  int        `json:"startMin"`
	EndMin    int        `json:"endMin"`
}

// Detector finds bookings that contend for a shared leaf during overlapping
// time. It holds no mutable state and never writes; checks are safe to repeat
// for speculative previews.
type Detector struct {
	src    Source
	leaves LeafResolver
}

// NewDetector creates a detector over the given store slice and coverage index.
func NewDetector(src Source, leaves LeafResolver) *Detector {
	return &Detector{src: src, leaves: leaves}
}

// CheckTemplateConflicts checks each candidate against the existing template
// bookings of one schedule. Each needed day-of-week population is loaded once.
func (d *Detector) CheckTemplateConflicts(ctx context.Context, scheduleID string, candidates []Candidate) ([]Record, error) {
	byDay := make(map[int][]model.BookingTemplate)
	var records []Record
	for _, c := range candidates {
		if err := validateCandidate(c.AreaID, c.DayOfWeek, c.StartMin, c.EndMin); err != nil {
			return nil, err
		}
		population, ok := byDay[c.DayOfWeek]
		if !ok {
			var err error
			population, err = d.src.TemplateBookingsForDay(ctx, scheduleID, c.DayOfWeek)
			if err != nil {
				return nil, err
			}
			byDay[c.DayOfWeek] = population
		}
		found, err := d.templateHits(ctx, c, population)
		if err != nil {
			return nil, err
		}
		records = append(records, found...)
	}
	return d.annotate(ctx, records)
}

// CheckAreaConflicts checks a single template-layer candidate.
func (d *Detector) CheckAreaConflicts(ctx context.Context, scheduleID, areaID string, dayOfWeek, startMin, endMin int, excludeID string) ([]Record, error) {
	return d.CheckTemplateConflicts(ctx, scheduleID, []Candidate{{
		AreaID:    areaID,
		DayOfWeek: dayOfWeek,
		StartMin:  startMin,
		EndMin:    endMin,
		ExcludeID: excludeID,
	}})
}

// CheckCalendarConflicts checks a dated candidate against the calendar
// bookings of the same date. Template bookings are never consulted.
func (d *Detector) CheckCalendarConflicts(ctx context.Context, areaID string, date time.Time, startMin, endMin int, excludeID string) ([]Record, error) {
	if !ValidInterval(startMin, endMin) {
		return nil, &store.ValidationError{Entity: "interval",
			Reason: fmt.Sprintf("[%d, %d) on area %s is not a valid slot", startMin, endMin, areaID)}
	}
	population, err := d.src.CalendarBookingsOn(ctx, date)
	if err != nil {
		return nil, err
	}
	day := model.Midnight(date)
	var records []Record
	for _, b := range population {
		if b.ID == excludeID {
			continue
		}
		if !Overlaps(startMin, endMin, b.StartMin, b.EndMin) {
			continue
		}
		hit, err := d.leaves.Intersects(ctx, areaID, b.AreaID)
		if err != nil {
			return nil, err
		}
		if !hit {
			continue
		}
		bd := day
		records = append(records, Record{
			BookingID: b.ID,
			AreaID:    b.AreaID,
			GroupID:   b.GroupID,
			Date:      &bd,
			StartMin:  b.StartMin,
			EndMin:    b.EndMin,
		})
	}
	return d.annotate(ctx, records)
}

// validateCandidate rejects malformed candidates up front. A day outside Monday=1
// ..Sunday=7 would otherwise match an empty population and read as a false
// "no conflicts".
func validateCandidate(areaID string, dayOfWeek, startMin, endMin int) error {
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return &store.ValidationError{Entity: "dayOfWeek",
			Reason: fmt.Sprintf("%d on area %s is outside Monday=1..Sunday=7", dayOfWeek, areaID)}
	}
	if !ValidInterval(startMin, endMin) {
		return &store.ValidationError{Entity: "interval",
			Reason: fmt.Sprintf("[%d, %d) on area %s is not a valid slot", startMin, endMin, areaID)}
	}
	return nil
}

func (d *Detector) templateHits(ctx context.Context, c Candidate, population []model.BookingTemplate) ([]Record, error) {
	var records []Record
	for _, b := range population {
		if b.ID == c.ExcludeID {
			continue
		}
		if !Overlaps(c.StartMin, c.EndMin, b.StartMin, b.EndMin) {
			continue
		}
		hit, err := d.leaves.Intersects(ctx, c.AreaID, b.AreaID)
		if err != nil {
			return nil, err
		}
		if !hit {
			continue
		}
		records = append(records, Record{
			BookingID: b.ID,
			AreaID:    b.AreaID,
			GroupID:   b.GroupID,
			DayOfWeek: b.DayOfWeek,
			StartMin:  b.StartMin,
			EndMin:    b.EndMin,
		})
	}
	return records, nil
}

// annotate fills in display names with one lookup per entity kind and orders
// records for stable output.
func (d *Detector) annotate(ctx context.Context, records []Record) ([]Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	areaIDs := make([]string, 0, len(records))
	groupIDs := make([]string, 0, len(records))
	seenArea := make(map[string]struct{})
	seenGroup := make(map[string]struct{})
	for _, r := range records {
		if _, ok := seenArea[r.AreaID]; !ok {
			seenArea[r.AreaID] = struct{}{}
			areaIDs = append(areaIDs, r.AreaID)
		}
		if _, ok := seenGroup[r.GroupID]; !ok {
			seenGroup[r.GroupID] = struct{}{}
			groupIDs = append(groupIDs, r.GroupID)
		}
	}
	areaNames, err := d.src.AreaNames(ctx, areaIDs)
	if err != nil {
		return nil, err
	}
	groupNames, err := d.src.GroupNames(ctx, groupIDs)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].AreaName = areaNames[records[i].AreaID]
		records[i].GroupName = groupNames[records[i].GroupID]
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].StartMin != records[j].StartMin {
			return records[i].StartMin < records[j].StartMin
		}
		return records[i].BookingID < records[j].BookingID
	})
	return records, nil
}
