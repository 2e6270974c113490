package bookingrepo

import (
	"context"

	"github.com/evcharge/charging-stations-api/internal/domain"
)

// Repository stores bookings.
//
// Result ordering expectations:
// - List methods return the most recently inserted booking first.
//
// Ownership is enforced by the repository: Cancel only touches a booking whose
// UserID equals the given subject and reports ErrNotFound otherwise.
type Repository interface {
	Insert(ctx context.Context, b domain.Booking) error

	ListByUser(ctx context.Context, userID domain.SubjectID) ([]domain.Booking, error)
	ListAll(ctx context.Context) ([]domain.Booking, error)

	// Cancel flips the booking status to cancelled and returns the updated record.
	Cancel(ctx context.Context, userID domain.SubjectID, id domain.BookingID) (domain.Booking, error)
}
