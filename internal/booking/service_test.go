package booking

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"facility-booking-backend/internal/coverage"
	"facility-booking-backend/internal/db"
	"facility-booking-backend/internal/model"
	"facility-booking-backend/internal/store"
)

var monday = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))

	require.NoError(t, gdb.Create(&model.Place{ID: "place", Name: "Pool"}).Error)
	require.NoError(t, gdb.Create(&model.Leaf{ID: "L1", PlaceID: "place", Name: "Lane 1"}).Error)
	require.NoError(t, gdb.Create(&model.Leaf{ID: "L2", PlaceID: "place", Name: "Lane 2"}).Error)
	require.NoError(t, gdb.Create(&model.Area{ID: "halfA", PlaceID: "place", Name: "Half A"}).Error)
	require.NoError(t, gdb.Create(&model.Area{ID: "lane1", PlaceID: "place", Name: "Lane 1"}).Error)
	require.NoError(t, gdb.Create(&[]model.AreaLeaf{
		{AreaID: "halfA", LeafID: "L1"},
		{AreaID: "halfA", LeafID: "L2"},
		{AreaID: "lane1", LeafID: "L1"},
	}).Error)
	require.NoError(t, gdb.Create(&model.Group{ID: "sharks", Name: "Sharks"}).Error)
	require.NoError(t, gdb.Create(&model.Group{ID: "otters", Name: "Otters"}).Error)

	st := store.NewGormStore(gdb)
	cov := coverage.New(st, time.Minute, zap.NewNop())
	require.NoError(t, cov.Rebuild(context.Background(), "place"))
	return NewService(st, cov, zap.NewNop()), gdb
}

func TestCreateCalendarBooking(t *testing.T) {
	svc, gdb := newService(t)

	row, err := svc.CreateCalendarBooking(context.Background(), CreateRequest{
		AreaID: "halfA", GroupID: "sharks", Date: monday, StartMin: 540, EndMin: 630,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, row.ID)

	var n int64
	require.NoError(t, gdb.Model(&model.CalendarBooking{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCreateRejectsConflictingBooking(t *testing.T) {
	svc, gdb := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCalendarBooking(ctx, CreateRequest{
		AreaID: "halfA", GroupID: "sharks", Date: monday, StartMin: 540, EndMin: 630,
	})
	require.NoError(t, err)

	// Lane1 shares L1 with HalfA and 600-660 overlaps 540-630.
	_, err = svc.CreateCalendarBooking(ctx, CreateRequest{
		AreaID: "lane1", GroupID: "otters", Date: monday, StartMin: 600, EndMin: 660,
	})
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	require.Len(t, cErr.Records, 1)
	assert.Equal(t, "Half A", cErr.Records[0].AreaName)
	assert.Equal(t, "Sharks", cErr.Records[0].GroupName)

	// The rejected insert left nothing behind.
	var n int64
	require.NoError(t, gdb.Model(&model.CalendarBooking{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCreateAllowsTouchingBoundary(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCalendarBooking(ctx, CreateRequest{
		AreaID: "halfA", GroupID: "sharks", Date: monday, StartMin: 540, EndMin: 630,
	})
	require.NoError(t, err)

	_, err = svc.CreateCalendarBooking(ctx, CreateRequest{
		AreaID: "lane1", GroupID: "otters", Date: monday, StartMin: 630, EndMin: 690,
	})
	assert.NoError(t, err)
}

func TestMoveExcludesOwnPriorRecord(t *testing.T) {
	svc, gdb := newService(t)
	ctx := context.Background()

	row, err := svc.CreateCalendarBooking(ctx, CreateRequest{
		AreaID: "halfA", GroupID: "sharks", Date: monday, StartMin: 540, EndMin: 630,
	})
	require.NoError(t, err)

	// Shift the booking by 30 minutes; the new position overlaps the old one.
	moved, err := svc.CreateCalendarBooking(ctx, CreateRequest{
		AreaID: "halfA", GroupID: "sharks", Date: monday, StartMin: 570, EndMin: 660,
		ReplacesID: row.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, row.ID, moved.ID)

	var n int64
	require.NoError(t, gdb.Model(&model.CalendarBooking{}).Count(&n).Error)
	assert.Equal(t, int64(1), n, "the prior record is gone")
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCalendarBooking(ctx, CreateRequest{
		AreaID: "halfA", GroupID: "sharks", Date: monday, StartMin: 630, EndMin: 540,
	})
	var vErr *store.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "interval", vErr.Entity)

	_, err = svc.CreateCalendarBooking(ctx, CreateRequest{
		AreaID: "no-such-area", GroupID: "sharks", Date: monday, StartMin: 540, EndMin: 630,
	})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "area", vErr.Entity)
}

// flakyStore fails WithTx with a serialization failure a fixed number of
// times before delegating to the real store.
type flakyStore struct {
	store.Store
	failures int
	calls    int
}

func (f *flakyStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}
	return f.Store.WithTx(ctx, fn)
}

func TestCreateRetriesSerializationFailure(t *testing.T) {
	svc, gdb := newService(t)
	flaky := &flakyStore{Store: svc.store, failures: 2}
	svc.store = flaky

	row, err := svc.CreateCalendarBooking(context.Background(), CreateRequest{
		AreaID: "halfA", GroupID: "sharks", Date: monday, StartMin: 540, EndMin: 630,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.calls)

	var n int64
	require.NoError(t, gdb.Model(&model.CalendarBooking{}).Where("id = ?", row.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCreateGivesUpAfterRepeatedSerializationFailures(t *testing.T) {
	svc, _ := newService(t)
	flaky := &flakyStore{Store: svc.store, failures: 10}
	svc.store = flaky

	_, err := svc.CreateCalendarBooking(context.Background(), CreateRequest{
		AreaID: "halfA", GroupID: "sharks", Date: monday, StartMin: 540, EndMin: 630,
	})
	require.Error(t, err)
	assert.True(t, store.IsSerializationFailure(err))
	assert.Equal(t, createRetries, flaky.calls)
}

func TestRemoveInstantiated(t *testing.T) {
	svc, gdb := newService(t)
	schedID := "sched1"
	require.NoError(t, gdb.Create(&[]model.CalendarBooking{
		{ID: "cb1", AreaID: "halfA", GroupID: "sharks", Date: monday, StartMin: 540, EndMin: 630, SourceTemplateID: &schedID},
		{ID: "cb2", AreaID: "halfA", GroupID: "sharks", Date: monday.AddDate(0, 0, 7), StartMin: 540, EndMin: 630, SourceTemplateID: &schedID},
		{ID: "cb3", AreaID: "lane1", GroupID: "otters", Date: monday, StartMin: 700, EndMin: 760},
	}).Error)

	deleted, err := svc.RemoveInstantiated(context.Background(), schedID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// The manually created booking survives.
	var remaining []model.CalendarBooking
	require.NoError(t, gdb.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "cb3", remaining[0].ID)
}
