package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	clockport "github.com/evcharge/charging-stations-api/internal/ports/out/clock"
	"github.com/evcharge/charging-stations-api/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
//
// Records older than ttl are treated as absent and pruned on Put. A ttl <= 0
// keeps records forever.
type Store struct {
	pool *pgxpool.Pool
	clk  clockport.Clock
	ttl  time.Duration
}

func NewStore(pool *pgxpool.Pool, clk clockport.Clock, ttl time.Duration) *Store {
	return &Store{pool: pool, clk: clk, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND subject = $2
		  AND route = $3
		  AND body_hash = $4
	`,
		string(fp.Key),
		string(fp.Subject),
		fp.Route,
		fp.BodyHash,
	)
	var rec idempotency.Record
	if err := row.Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if s.ttl > 0 && !s.clk.Now().Before(rec.CreatedAt.Add(s.ttl)) {
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clk.Now()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if s.ttl > 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at <= $1`, s.clk.Now().Add(-s.ttl).UTC()); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO idempotency_keys (
				idempotency_key,
				subject,
				route,
				body_hash,
				status_code,
				content_type,
				body,
				created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (idempotency_key, subject, route, body_hash)
			DO UPDATE SET
				status_code = EXCLUDED.status_code,
				content_type = EXCLUDED.content_type,
				body = EXCLUDED.body,
				created_at = EXCLUDED.created_at
		`,
			string(fp.Key),
			string(fp.Subject),
			fp.Route,
			fp.BodyHash,
			rec.StatusCode,
			rec.ContentType,
			body,
			createdAt.UTC(),
		)
		return err
	})
}
