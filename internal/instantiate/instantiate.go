// Package instantiate projects a weekly schedule template onto concrete
// calendar dates.
package instantiate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"facility-booking-backend/internal/conflict"
	"facility-booking-backend/internal/model"
	"facility-booking-backend/internal/store"
)

// Source is the slice of the store the instantiator needs.
type Source interface {
	GetScheduleTemplate(ctx context.Context, scheduleID string) (model.ScheduleTemplate, error)
	ListBookingTemplates(ctx context.Context, scheduleID string) ([]model.BookingTemplate, error)
	MissingAreas(ctx context.Context, areaIDs []string) ([]string, error)
	MissingGroups(ctx context.Context, groupIDs []string) ([]string, error)
	CalendarBookingsInRange(ctx context.Context, from, to time.Time) ([]model.CalendarBooking, error)
	CreateCalendarBookings(ctx context.Context, rows []model.CalendarBooking) error
}

// Instantiator expands booking templates into dated calendar bookings.
type Instantiator struct {
	src    Source
	logger *zap.Logger
}

// New creates an instantiator.
func New(src Source, logger *zap.Logger) *Instantiator {
	return &Instantiator{src: src, logger: logger}
}

// Run creates a calendar booking for every date in [startDate, endDate]
// (inclusive) whose day of week matches a booking template of the schedule.
//
// Referenced areas and groups are validated up front; a missing reference
// fails the whole run before anything is written. Candidates whose
// (area, group, date, start, end) tuple already exists are skipped, so
// re-running over an overlapping range only adds the missing slots. Template
// rows with an empty area or group reference are logged and skipped rather
// than failing the run. The produced rows are deliberately NOT conflict
// checked: operators resolve overbooked slots after copying a template into a
// week, and callers wanting pre-emptive blocking run the detector first.
//
// All generated rows are persisted as one batch at the end, so cancelling ctx
// mid-range never leaves a partial batch behind.
func (n *Instantiator) Run(ctx context.Context, scheduleID string, startDate, endDate time.Time) ([]model.CalendarBooking, error) {
	start := model.Midnight(startDate)
	end := model.Midnight(endDate)
	if end.Before(start) {
		return nil, &store.ValidationError{Entity: "date range", Reason: fmt.Sprintf("end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))}
	}

	sched, err := n.src.GetScheduleTemplate(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	templates, err := n.src.ListBookingTemplates(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	valid := templates[:0:0]
	for _, t := range templates {
		if t.AreaID == "" || t.GroupID == "" {
			n.logger.Warn("skipping malformed booking template",
				zap.String("template_id", t.ID),
				zap.String("schedule_id", scheduleID))
			continue
		}
		valid = append(valid, t)
	}

	if err := n.validateReferences(ctx, valid); err != nil {
		return nil, err
	}

	existing, err := n.src.CalendarBookingsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, b := range existing {
		seen[dedupKey(b.AreaID, b.GroupID, b.Date, b.StartMin, b.EndMin)] = struct{}{}
	}

	byDay := make(map[int][]model.BookingTemplate, 7)
	for _, t := range valid {
		byDay[t.DayOfWeek] = append(byDay[t.DayOfWeek], t)
	}

	var created []model.CalendarBooking
	skipped := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("instantiation of schedule %s aborted at %s: %w",
				scheduleID, day.Format("2006-01-02"), err)
		}
		for _, t := range byDay[conflict.Weekday(day)] {
			key := dedupKey(t.AreaID, t.GroupID, day, t.StartMin, t.EndMin)
			if _, dup := seen[key]; dup {
				skipped++
				continue
			}
			seen[key] = struct{}{}
			srcID := sched.ID
			created = append(created, model.CalendarBooking{
				ID:               uuid.NewString(),
				AreaID:           t.AreaID,
				GroupID:          t.GroupID,
				Date:             day,
				StartMin:         t.StartMin,
				EndMin:           t.EndMin,
				SourceTemplateID: &srcID,
			})
		}
	}

	if err := n.src.CreateCalendarBookings(ctx, created); err != nil {
		return nil, fmt.Errorf("instantiating schedule %s over [%s, %s] (%d rows): %w",
			scheduleID, start.Format("2006-01-02"), end.Format("2006-01-02"), len(created), err)
	}
	n.logger.Info("schedule instantiated",
		zap.String("schedule_id", scheduleID),
		zap.String("from", start.Format("2006-01-02")),
		zap.String("to", end.Format("2006-01-02")),
		zap.Int("created", len(created)),
		zap.Int("skipped_duplicates", skipped))
	return created, nil
}

// validateReferences fails the run if any distinct area or group referenced by
// the template set does not exist.
func (n *Instantiator) validateReferences(ctx context.Context, templates []model.BookingTemplate) error {
	areaIDs := distinct(templates, func(t model.BookingTemplate) string { return t.AreaID })
	groupIDs := distinct(templates, func(t model.BookingTemplate) string { return t.GroupID })

	missing, err := n.src.MissingAreas(ctx, areaIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &store.ValidationError{Entity: "area", IDs: missing, Reason: "referenced by template but not found"}
	}
	missing, err = n.src.MissingGroups(ctx, groupIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &store.ValidationError{Entity: "group", IDs: missing, Reason: "referenced by template but not found"}
	}
	return nil
}

func distinct(templates []model.BookingTemplate, key func(model.BookingTemplate) string) []string {
	seen := make(map[string]struct{}, len(templates))
	var ids []string
	for _, t := range templates {
		id := key(t)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func dedupKey(areaID, groupID string, date time.Time, startMin, endMin int) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", areaID, groupID, date.Format("2006-01-02"), startMin, endMin)
}
