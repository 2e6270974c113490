package domain

import "time"

type BookingStatus string

const (
	BookingStatusCreated   BookingStatus = "created"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a charging slot reserved by a single subject.
//
// SlotFrom and SlotTo are kept as the ISO-8601 strings the caller sent; they are
// not parsed.
type Booking struct {
	ID        BookingID
	UserID    SubjectID
	StationID StationID
	SlotFrom  string
	SlotTo    string
	Status    BookingStatus
	CreatedAt time.Time
}

// OwnedBy reports whether the booking belongs to subject.
func (b Booking) OwnedBy(subject SubjectID) bool {
	return b.UserID == subject
}

// Cancel moves the booking to cancelled. Cancelling twice is allowed.
func (b *Booking) Cancel() {
	b.Status = BookingStatusCancelled
}
