package idempotency

import (
	"context"
	"time"

	"github.com/evcharge/charging-stations-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request for replay purposes.
//
// Two lookups are made per request: one with an empty BodyHash that remembers
// which body a key was first used with, and one with the body hash that holds
// the response to replay. Route is "METHOD /path-template" (e.g. "POST /bookings").
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
// Get reports ok=false for unknown or expired fingerprints.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
