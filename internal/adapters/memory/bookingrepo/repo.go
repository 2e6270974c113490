package bookingrepo

import (
	"context"
	"sync"

	"github.com/evcharge/charging-stations-api/internal/domain"
	"github.com/evcharge/charging-stations-api/internal/ports/out/bookingrepo"
)

// Repo is an in-memory implementation of bookingrepo.Repository.
// It is safe for concurrent use.
//
// Bookings are kept in a single slice with the newest booking at index 0.
// Records are never removed; cancellation flips the status in place.
type Repo struct {
	mu       sync.RWMutex
	bookings []domain.Booking
}

func NewRepo() *Repo {
	return &Repo{}
}

func (r *Repo) Insert(ctx context.Context, b domain.Booking) error {
	_ = ctx
	if b.ID == "" {
		return bookingrepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.ID == b.ID {
			return bookingrepo.ErrAlreadyExists
		}
	}
	next := make([]domain.Booking, 0, len(r.bookings)+1)
	next = append(next, b)
	r.bookings = append(next, r.bookings...)
	return nil
}

func (r *Repo) ListByUser(ctx context.Context, userID domain.SubjectID) ([]domain.Booking, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Booking, 0)
	for _, b := range r.bookings {
		if b.OwnedBy(userID) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *Repo) ListAll(ctx context.Context) ([]domain.Booking, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(make([]domain.Booking, 0, len(r.bookings)), r.bookings...), nil
}

func (r *Repo) Cancel(ctx context.Context, userID domain.SubjectID, id domain.BookingID) (domain.Booking, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bookings {
		if r.bookings[i].ID == id && r.bookings[i].OwnedBy(userID) {
			r.bookings[i].Cancel()
			return r.bookings[i], nil
		}
	}
	return domain.Booking{}, bookingrepo.ErrNotFound
}
