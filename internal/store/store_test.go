package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"facility-booking-backend/internal/model"
)

func newTestDB(t *testing.T) (Store, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(
		&model.Place{}, &model.Leaf{}, &model.Area{}, &model.AreaLeaf{},
		&model.AreaCoverage{}, &model.Group{}, &model.ScheduleTemplate{},
		&model.BookingTemplate{}, &model.CalendarBooking{},
	))
	return NewGormStore(gdb), gdb
}

func seedPlace(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	require.NoError(t, gdb.Create(&model.Place{ID: "place", Name: "Pool"}).Error)
	require.NoError(t, gdb.Create(&model.Leaf{ID: "L1", PlaceID: "place", Name: "Lane 1"}).Error)
	require.NoError(t, gdb.Create(&model.Area{ID: "a1", PlaceID: "place", Name: "Area 1"}).Error)
}

func TestCreateAreaWithAssignments(t *testing.T) {
	st, gdb := newTestDB(t)
	seedPlace(t, gdb)
	ctx := context.Background()

	parent := "a1"
	err := st.CreateArea(ctx, model.Area{ID: "a2", PlaceID: "place", ParentAreaID: &parent, Name: "Area 2"}, []string{"L1"})
	require.NoError(t, err)

	var rows []model.AreaLeaf
	require.NoError(t, gdb.Where("area_id = ?", "a2").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "L1", rows[0].LeafID)
}

func TestReplaceCoverageSwapsWholePlace(t *testing.T) {
	st, gdb := newTestDB(t)
	seedPlace(t, gdb)
	ctx := context.Background()

	require.NoError(t, st.ReplaceCoverage(ctx, "place", []model.AreaCoverage{{AreaID: "a1", LeafID: "L1"}}))
	leafIDs, err := st.CoverageLeafIDs(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, leafIDs)

	// An empty replacement clears the closure for the place.
	require.NoError(t, st.ReplaceCoverage(ctx, "place", nil))
	leafIDs, err = st.CoverageLeafIDs(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, leafIDs)
}

func TestMissingIDs(t *testing.T) {
	st, gdb := newTestDB(t)
	seedPlace(t, gdb)
	require.NoError(t, gdb.Create(&model.Group{ID: "g1", Name: "Sharks"}).Error)
	ctx := context.Background()

	missing, err := st.MissingAreas(ctx, []string{"a1", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, missing)

	missing, err = st.MissingGroups(ctx, []string{"g1"})
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestGetAreaNotFound(t *testing.T) {
	st, _ := newTestDB(t)

	_, err := st.GetArea(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCalendarBookingNotFound(t *testing.T) {
	st, _ := newTestDB(t)

	err := st.DeleteCalendarBooking(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCalendarBookingsInRangeOrdered(t *testing.T) {
	st, gdb := newTestDB(t)
	day1 := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	require.NoError(t, gdb.Create(&[]model.CalendarBooking{
		{ID: "cb2", AreaID: "a1", GroupID: "g1", Date: day2, StartMin: 540, EndMin: 630},
		{ID: "cb1b", AreaID: "a1", GroupID: "g1", Date: day1, StartMin: 700, EndMin: 760},
		{ID: "cb1a", AreaID: "a1", GroupID: "g1", Date: day1, StartMin: 540, EndMin: 630},
	}).Error)

	rows, err := st.CalendarBookingsInRange(context.Background(), day1, day2)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"cb1a", "cb1b", "cb2"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})

	// Inclusive bounds: a one-day window sees only that date.
	rows, err = st.CalendarBookingsInRange(context.Background(), day1, day1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st, gdb := newTestDB(t)
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := st.WithTx(context.Background(), func(tx Store) error {
		if err := tx.CreateCalendarBookings(context.Background(), []model.CalendarBooking{
			{ID: "cb1", AreaID: "a1", GroupID: "g1", Date: day, StartMin: 540, EndMin: 630},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int64
	require.NoError(t, gdb.Model(&model.CalendarBooking{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}
