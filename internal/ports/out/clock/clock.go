package clock

import "time"

// Clock stamps booking creation times and ages idempotency records.
// Implementations return UTC.
type Clock interface {
	Now() time.Time
}
