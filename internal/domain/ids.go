package domain

// SubjectID is the authenticated subject extracted from JWT claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type SubjectID string

// BookingID is an internal identifier for a booking record.
type BookingID string

// StationID identifies a charging station.
type StationID string
