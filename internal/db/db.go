package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"facility-booking-backend/config"
	"facility-booking-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Info("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Driver == "postgres" && cfg.EnableExclusionBackstop {
		logger.Info("applying exclusion-backstop DDL")
		if err := applyExclusionBackstopDDL(db); err != nil {
			return nil, err
		}
	}

	logger.Info("database initialization complete")
	return db, nil
}

// Migrate creates or updates the schema for every core entity.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Place{},
		&model.Leaf{},
		&model.Area{},
		&model.AreaLeaf{},
		&model.AreaCoverage{},
		&model.Group{},
		&model.ScheduleTemplate{},
		&model.BookingTemplate{},
		&model.CalendarBooking{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyExclusionBackstopDDL installs Postgres-level guards behind the
// transactional conflict check. The exclusion constraint rejects two bookings
// on the SAME area, date and overlapping minute range even when both writers
// passed a stale check; cross-area collisions through shared leaves are still
// caught only by the in-transaction detector. Opt-in: with the constraint
// enabled, template instantiation can no longer materialize deliberately
// overbooked slots for operators to resolve by hand.
func applyExclusionBackstopDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"ALTER TABLE booking_templates DROP CONSTRAINT IF EXISTS booking_templates_interval_valid;",
		"ALTER TABLE booking_templates ADD CONSTRAINT booking_templates_interval_valid " +
			"CHECK (start_min >= 0 AND end_min <= 1440 AND start_min < end_min AND day_of_week BETWEEN 1 AND 7);",

		"ALTER TABLE calendar_bookings DROP CONSTRAINT IF EXISTS calendar_bookings_interval_valid;",
		"ALTER TABLE calendar_bookings ADD CONSTRAINT calendar_bookings_interval_valid " +
			"CHECK (start_min >= 0 AND end_min <= 1440 AND start_min < end_min);",

		"ALTER TABLE calendar_bookings DROP CONSTRAINT IF EXISTS calendar_bookings_no_area_overlap;",
		"ALTER TABLE calendar_bookings ADD CONSTRAINT calendar_bookings_no_area_overlap " +
			"EXCLUDE USING GIST (area_id WITH =, date WITH =, int4range(start_min, end_min, '[)') WITH &&);",
	}
	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
