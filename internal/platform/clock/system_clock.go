package clock

import "time"

// SystemClock reads the wall clock, truncated to milliseconds so stored and
// rendered timestamps round-trip through JSON and Postgres unchanged.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
