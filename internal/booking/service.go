// Package booking creates calendar bookings with the conflict check and the
// insert bound to the same store transaction, closing the check-then-act
// window between two concurrent callers.
package booking

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

// ConflictError carries the bookings a rejected create collided with.
type ConflictError struct {
	Records []conflict.Record
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking conflicts with %d existing bookings", len(e.Records))
}

// CreateRequest describes the calendar booking to create. ReplacesID, when
// set, names an existing booking being moved; it is excluded from the
// conflict check and deleted in the same transaction.
type CreateRequest struct {
	AreaID           string    `json:"areaId"`
	GroupID          string    `json:"groupId"`
	Date             time.Time `json:"date"`
	StartMin         int       `json:"startMin"`
	EndMin           int       `json:"endMin"`
	SourceTemplateID *string   `json:"sourceTemplateId"`
	ReplacesID       string    `json:"replacesId,omitempty"`
}

// Service creates and removes calendar bookings.
type Service struct {
	store  store.Store
	leaves conflict.LeafResolver
	logger *zap.Logger
}

// NewService creates a booking service.
func NewService(st store.Store, leaves conflict.LeafResolver, logger *zap.Logger) *Service {
	return &Service{store: st, leaves: leaves, logger: logger}
}

// createRetries bounds retries of a serializable transaction that lost the
// race against a concurrent writer.
const createRetries = 3

// CreateCalendarBooking validates the request, then re-runs the calendar
// conflict check inside the SERIALIZABLE insert transaction. Of two callers
// racing for the same leaves, one commits; the other either sees the
// committed row (ConflictError) or gets a serialization failure, which is
// retried here until it resolves to a clean insert or a ConflictError.
func (s *Service) CreateCalendarBooking(ctx context.Context, req CreateRequest) (model.CalendarBooking, error) {
	if !conflict.ValidInterval(req.StartMin, req.EndMin) {
		return model.CalendarBooking{}, &store.ValidationError{
			Entity: "interval",
			Reason: fmt.Sprintf("[%d, %d) is not a valid slot", req.StartMin, req.EndMin),
		}
	}
	if err := s.checkReferences(ctx, req); err != nil {
		return model.CalendarBooking{}, err
	}

	row := model.CalendarBooking{
		ID:               uuid.NewString(),
		AreaID:           req.AreaID,
		GroupID:          req.GroupID,
		Date:             model.Midnight(req.Date),
		StartMin:         req.StartMin,
		EndMin:           req.EndMin,
		SourceTemplateID: req.SourceTemplateID,
	}

	var err error
	for attempt := 0; attempt < createRetries; attempt++ {
		err = s.store.WithTx(ctx, func(tx store.Store) error {
			det := conflict.NewDetector(tx, s.leaves)
			records, err := det.CheckCalendarConflicts(ctx, req.AreaID, row.Date, req.StartMin, req.EndMin, req.ReplacesID)
			if err != nil {
				return err
			}
			if len(records) > 0 {
				return &ConflictError{Records: records}
			}
			if req.ReplacesID != "" {
				if err := tx.DeleteCalendarBooking(ctx, req.ReplacesID); err != nil {
					return err
				}
			}
			return tx.CreateCalendarBookings(ctx, []model.CalendarBooking{row})
		})
		if err == nil || !store.IsSerializationFailure(err) {
			break
		}
		s.logger.Warn("serialization failure on booking create, retrying",
			zap.String("booking_id", row.ID),
			zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return model.CalendarBooking{}, err
	}
	s.logger.Info("calendar booking created",
		zap.String("booking_id", row.ID),
		zap.String("area_id", row.AreaID),
		zap.String("date", row.Date.Format("2006-01-02")))
	return row, nil
}

// RemoveInstantiated deletes every calendar booking created from the given
// schedule. This is the explicit cascade-cleanup step; it never runs
// implicitly when a schedule is deleted.
func (s *Service) RemoveInstantiated(ctx context.Context, scheduleID string) (int64, error) {
	deleted, err := s.store.DeleteCalendarBookingsBySource(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("instantiated bookings removed",
		zap.String("schedule_id", scheduleID),
		zap.Int64("deleted", deleted))
	return deleted, nil
}

func (s *Service) checkReferences(ctx context.Context, req CreateRequest) error {
	missing, err := s.store.MissingAreas(ctx, []string{req.AreaID})
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &store.ValidationError{Entity: "area", IDs: missing, Reason: "not found"}
	}
	missing, err = s.store.MissingGroups(ctx, []string{req.GroupID})
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &store.ValidationError{Entity: "group", IDs: missing, Reason: "not found"}
	}
	return nil
}
