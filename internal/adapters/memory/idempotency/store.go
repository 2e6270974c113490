package idempotency

import (
	"context"
	"sync"
	"time"

	clockport "github.com/evcharge/charging-stations-api/internal/ports/out/clock"
	"github.com/evcharge/charging-stations-api/internal/ports/out/idempotency"
)

// DefaultTTL bounds how long a stored response can be replayed.
const DefaultTTL = 24 * time.Hour

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use. Expired records are dropped lazily on Get
// and swept on Put.
type Store struct {
	clk clockport.Clock
	ttl time.Duration

	mu sync.Mutex
	m  map[idempotency.Fingerprint]idempotency.Record
}

// NewStore returns a store whose records expire ttl after their CreatedAt.
// A ttl <= 0 keeps records for the lifetime of the process.
func NewStore(clk clockport.Clock, ttl time.Duration) *Store {
	return &Store{
		clk: clk,
		ttl: ttl,
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	if s.expired(rec) {
		delete(s.m, fp)
		return idempotency.Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clk.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.m {
		if s.expired(v) {
			delete(s.m, k)
		}
	}
	s.m[fp] = cloneRecord(rec)
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	if s.ttl <= 0 {
		return false
	}
	return !s.clk.Now().Before(rec.CreatedAt.Add(s.ttl))
}

func cloneRecord(rec idempotency.Record) idempotency.Record {
	cp := rec
	cp.Body = append([]byte(nil), rec.Body...)
	return cp
}
