package domain

// StationStatus is the reported availability of a station.
// The zero value means the status is unspecified.
type StationStatus string

const (
	StationStatusUnspecified StationStatus = ""
	StationStatusAvailable   StationStatus = "available"
	StationStatusBusy        StationStatus = "busy"
	StationStatusOffline     StationStatus = "offline"
)

// Valid reports whether s is one of the known statuses (including unspecified).
func (s StationStatus) Valid() bool {
	switch s {
	case StationStatusUnspecified, StationStatusAvailable, StationStatusBusy, StationStatusOffline:
		return true
	default:
		return false
	}
}

type Station struct {
	ID      StationID
	Name    string
	Address *string
	Status  StationStatus
}
