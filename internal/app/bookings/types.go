package bookings

// CreateInput is the caller-supplied part of a new booking.
// Slot values are opaque strings; they are not parsed as dates.
type CreateInput struct {
	StationID string
	SlotFrom  string
	SlotTo    string
}

func (in CreateInput) validate() error {
	details := map[string]any{}
	if in.StationID == "" {
		details["stationId"] = "must be a non-empty string"
	}
	if in.SlotFrom == "" {
		details["slotFrom"] = "must be a non-empty string"
	}
	if in.SlotTo == "" {
		details["slotTo"] = "must be a non-empty string"
	}
	if len(details) > 0 {
		return validationError(details)
	}
	return nil
}
