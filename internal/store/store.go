package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"facility-booking-backend/internal/model"
)

// Store defines the interface for all database operations the core needs.
// Implementations must be safe for concurrent readers; conflicting writes are
// serialized by the transaction support exposed through WithTx.
type Store interface {
	// WithTx runs fn against a Store bound to a single SERIALIZABLE
	// transaction. A non-nil error from fn rolls the transaction back. On
	// Postgres a conflicting concurrent transaction surfaces as a
	// serialization failure (see IsSerializationFailure); callers retry.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Areas and coverage.
	GetArea(ctx context.Context, areaID string) (model.Area, error)
	CreateArea(ctx context.Context, area model.Area, directLeafIDs []string) error
	ReparentArea(ctx context.Context, areaID string, newParentID *string) error
	ListAreasByPlace(ctx context.Context, placeID string) ([]model.Area, error)
	ListDirectAssignments(ctx context.Context, placeID string) ([]model.AreaLeaf, error)
	ReplaceCoverage(ctx context.Context, placeID string, rows []model.AreaCoverage) error
	CoverageLeafIDs(ctx context.Context, areaID string) ([]string, error)
	AreaNames(ctx context.Context, areaIDs []string) (map[string]string, error)
	MissingAreas(ctx context.Context, areaIDs []string) ([]string, error)

	// Groups.
	GroupNames(ctx context.Context, groupIDs []string) (map[string]string, error)
	MissingGroups(ctx context.Context, groupIDs []string) ([]string, error)

	// Schedule templates.
	GetScheduleTemplate(ctx context.Context, scheduleID string) (model.ScheduleTemplate, error)
	ListBookingTemplates(ctx context.Context, scheduleID string) ([]model.BookingTemplate, error)
	TemplateBookingsForDay(ctx context.Context, scheduleID string, dayOfWeek int) ([]model.BookingTemplate, error)

	// Calendar bookings.
	CalendarBookingsOn(ctx context.Context, date time.Time) ([]model.CalendarBooking, error)
	CalendarBookingsInRange(ctx context.Context, from, to time.Time) ([]model.CalendarBooking, error)
	CreateCalendarBookings(ctx context.Context, rows []model.CalendarBooking) error
	DeleteCalendarBooking(ctx context.Context, bookingID string) error
	DeleteCalendarBookingsBySource(ctx context.Context, scheduleID string) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Serializable isolation is what makes read-then-insert sequences inside a
// WithTx safe against each other: under READ COMMITTED two writers could both
// read a population missing the other's uncommitted row and both commit.
// sqlite accepts LevelSerializable as its native behavior.
func (s *gormStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (s *gormStore) GetArea(ctx context.Context, areaID string) (model.Area, error) {
	var area model.Area
	err := s.db.WithContext(ctx).First(&area, "id = ?", areaID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Area{}, fmt.Errorf("area %s: %w", areaID, ErrNotFound)
	}
	if err != nil {
		return model.Area{}, fmt.Errorf("failed to load area %s: %w", areaID, err)
	}
	return area, nil
}

// CreateArea inserts the area together with its direct leaf assignments in one
// transaction. Coverage recomputation is the caller's responsibility.
func (s *gormStore) CreateArea(ctx context.Context, area model.Area, directLeafIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&area).Error; err != nil {
			return fmt.Errorf("failed to create area %s: %w", area.ID, err)
		}
		if len(directLeafIDs) == 0 {
			return nil
		}
		assignments := make([]model.AreaLeaf, 0, len(directLeafIDs))
		for _, leafID := range directLeafIDs {
			assignments = append(assignments, model.AreaLeaf{AreaID: area.ID, LeafID: leafID})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&assignments).Error; err != nil {
			return fmt.Errorf("failed to assign %d leaves to area %s: %w", len(assignments), area.ID, err)
		}
		return nil
	})
}

func (s *gormStore) ReparentArea(ctx context.Context, areaID string, newParentID *string) error {
	res := s.db.WithContext(ctx).Model(&model.Area{}).Where("id = ?", areaID).
		Update("parent_area_id", newParentID)
	if res.Error != nil {
		return fmt.Errorf("failed to reparent area %s: %w", areaID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("area %s: %w", areaID, ErrNotFound)
	}
	return nil
}

func (s *gormStore) ListAreasByPlace(ctx context.Context, placeID string) ([]model.Area, error) {
	var areas []model.Area
	if err := s.db.WithContext(ctx).Where("place_id = ?", placeID).Find(&areas).Error; err != nil {
		return nil, fmt.Errorf("failed to list areas for place %s: %w", placeID, err)
	}
	return areas, nil
}

func (s *gormStore) ListDirectAssignments(ctx context.Context, placeID string) ([]model.AreaLeaf, error) {
	var rows []model.AreaLeaf
	err := s.db.WithContext(ctx).
		Joins("JOIN areas ON areas.id = area_leaves.area_id").
		Where("areas.place_id = ?", placeID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list leaf assignments for place %s: %w", placeID, err)
	}
	return rows, nil
}

// ReplaceCoverage swaps the whole closure for a place: delete then batch
// insert inside one transaction, so readers never observe a half-written
// closure and a full rebuild is idempotent.
func (s *gormStore) ReplaceCoverage(ctx context.Context, placeID string, rows []model.AreaCoverage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("area_id IN (?)",
			tx.Model(&model.Area{}).Select("id").Where("place_id = ?", placeID),
		).Delete(&model.AreaCoverage{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear coverage for place %s: %w", placeID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 500).Error; err != nil {
			return fmt.Errorf("failed to write %d coverage rows for place %s: %w", len(rows), placeID, err)
		}
		return nil
	})
}

func (s *gormStore) CoverageLeafIDs(ctx context.Context, areaID string) ([]string, error) {
	var leafIDs []string
	err := s.db.WithContext(ctx).Model(&model.AreaCoverage{}).
		Where("area_id = ?", areaID).
		Pluck("leaf_id", &leafIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load coverage for area %s: %w", areaID, err)
	}
	return leafIDs, nil
}

func (s *gormStore) AreaNames(ctx context.Context, areaIDs []string) (map[string]string, error) {
	return s.namesByID(ctx, &model.Area{}, areaIDs)
}

func (s *gormStore) GroupNames(ctx context.Context, groupIDs []string) (map[string]string, error) {
	return s.namesByID(ctx, &model.Group{}, groupIDs)
}

func (s *gormStore) namesByID(ctx context.Context, entity any, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	type row struct {
		ID   string
		Name string
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(entity).
		Select("id", "name").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve names: %w", err)
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

func (s *gormStore) MissingAreas(ctx context.Context, areaIDs []string) ([]string, error) {
	return s.missingIDs(ctx, &model.Area{}, areaIDs)
}

func (s *gormStore) MissingGroups(ctx context.Context, groupIDs []string) ([]string, error) {
	return s.missingIDs(ctx, &model.Group{}, groupIDs)
}

func (s *gormStore) missingIDs(ctx context.Context, entity any, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var present []string
	err := s.db.WithContext(ctx).Model(entity).
		Where("id IN ?", ids).
		Pluck("id", &present).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check referenced ids: %w", err)
	}
	presentSet := make(map[string]struct{}, len(present))
	for _, id := range present {
		presentSet[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := presentSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *gormStore) GetScheduleTemplate(ctx context.Context, scheduleID string) (model.ScheduleTemplate, error) {
	var sched model.ScheduleTemplate
	err := s.db.WithContext(ctx).First(&sched, "id = ?", scheduleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ScheduleTemplate{}, fmt.Errorf("schedule template %s: %w", scheduleID, ErrNotFound)
	}
	if err != nil {
		return model.ScheduleTemplate{}, fmt.Errorf("failed to load schedule template %s: %w", scheduleID, err)
	}
	return sched, nil
}

func (s *gormStore) ListBookingTemplates(ctx context.Context, scheduleID string) ([]model.BookingTemplate, error) {
	var rows []model.BookingTemplate
	err := s.db.WithContext(ctx).
		Where("schedule_template_id = ?", scheduleID).
		Order("day_of_week, start_min").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list booking templates for schedule %s: %w", scheduleID, err)
	}
	return rows, nil
}

func (s *gormStore) TemplateBookingsForDay(ctx context.Context, scheduleID string, dayOfWeek int) ([]model.BookingTemplate, error) {
	var rows []model.BookingTemplate
	err := s.db.WithContext(ctx).
		Where("schedule_template_id = ? AND day_of_week = ?", scheduleID, dayOfWeek).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list day-%d templates for schedule %s: %w", dayOfWeek, scheduleID, err)
	}
	return rows, nil
}

func (s *gormStore) CalendarBookingsOn(ctx context.Context, date time.Time) ([]model.CalendarBooking, error) {
	var rows []model.CalendarBooking
	day := model.Midnight(date)
	if err := s.db.WithContext(ctx).Where("date = ?", day).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list calendar bookings on %s: %w", day.Format("2006-01-02"), err)
	}
	return rows, nil
}

func (s *gormStore) CalendarBookingsInRange(ctx context.Context, from, to time.Time) ([]model.CalendarBooking, error) {
	var rows []model.CalendarBooking
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", model.Midnight(from), model.Midnight(to)).
		Order("date, start_min").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar bookings in [%s, %s]: %w",
			from.Format("2006-01-02"), to.Format("2006-01-02"), err)
	}
	return rows, nil
}

// CreateCalendarBookings persists the rows as one transactional batch: either
// the whole batch commits or none of it does.
func (s *gormStore) CreateCalendarBookings(ctx context.Context, rows []model.CalendarBooking) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&rows, 200).Error; err != nil {
			return fmt.Errorf("failed to create %d calendar bookings: %w", len(rows), err)
		}
		return nil
	})
}

func (s *gormStore) DeleteCalendarBooking(ctx context.Context, bookingID string) error {
	res := s.db.WithContext(ctx).Delete(&model.CalendarBooking{}, "id = ?", bookingID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete calendar booking %s: %w", bookingID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("calendar booking %s: %w", bookingID, ErrNotFound)
	}
	return nil
}

func (s *gormStore) DeleteCalendarBookingsBySource(ctx context.Context, scheduleID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("source_template_id = ?", scheduleID).
		Delete(&model.CalendarBooking{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete calendar bookings from schedule %s: %w", scheduleID, res.Error)
	}
	return res.RowsAffected, nil
}
