package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evcharge/charging-stations-api/internal/domain"
	"github.com/evcharge/charging-stations-api/internal/ports/out/bookingrepo"
	clockport "github.com/evcharge/charging-stations-api/internal/ports/out/clock"
)

// maxIDAttempts bounds retries when a generated id collides with an existing booking.
const maxIDAttempts = 5

// Service implements booking use-cases. Every operation is scoped to the
// subject passed in; the service never returns or mutates another subject's
// booking.
//
// Overlapping slots for the same station are not detected.
type Service struct {
	repo bookingrepo.Repository
	clk  clockport.Clock

	newBookingID func() domain.BookingID
}

func NewService(repo bookingrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newBookingID: func() domain.BookingID {
			return domain.BookingID("bk-" + uuid.NewString())
		},
	}
}

// WithIDGenerator replaces the booking id generator. Intended for tests.
func (s *Service) WithIDGenerator(gen func() domain.BookingID) *Service {
	s.newBookingID = gen
	return s
}

func (s *Service) ListForUser(ctx context.Context, userID domain.SubjectID) ([]domain.Booking, error) {
	if userID == "" {
		return nil, errMissingUser
	}
	return s.repo.ListByUser(ctx, userID)
}

// ListAll returns every booking regardless of owner. Callers must gate it.
func (s *Service) ListAll(ctx context.Context) ([]domain.Booking, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Create(ctx context.Context, userID domain.SubjectID, in CreateInput) (domain.Booking, error) {
	if userID == "" {
		return domain.Booking{}, errMissingUser
	}
	if err := in.validate(); err != nil {
		return domain.Booking{}, err
	}

	b := domain.Booking{
		UserID:    userID,
		StationID: domain.StationID(in.StationID),
		SlotFrom:  in.SlotFrom,
		SlotTo:    in.SlotTo,
		Status:    domain.BookingStatusCreated,
		CreatedAt: s.clk.Now(),
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		b.ID = s.newBookingID()
		err := s.repo.Insert(ctx, b)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, bookingrepo.ErrAlreadyExists) {
			return domain.Booking{}, err
		}
	}
	return domain.Booking{}, fmt.Errorf("could not allocate a unique booking id after %d attempts", maxIDAttempts)
}

// Cancel cancels the caller's booking. It reports false (and no error) when the
// booking does not exist or belongs to someone else. Cancelling an already
// cancelled booking succeeds.
func (s *Service) Cancel(ctx context.Context, userID domain.SubjectID, id domain.BookingID) (bool, error) {
	if userID == "" {
		return false, errMissingUser
	}
	if id == "" {
		return false, validationError(map[string]any{"bookingId": "must be a non-empty string"})
	}
	if _, err := s.repo.Cancel(ctx, userID, id); err != nil {
		if errors.Is(err, bookingrepo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var errMissingUser = &Error{
	Status:  401,
	Code:    "UNAUTHORIZED",
	Message: "Unauthorized",
}
