package bookingrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/evcharge/charging-stations-api/internal/domain"
	"github.com/evcharge/charging-stations-api/internal/ports/out/bookingrepo"
)

// DefaultKeyPrefix namespaces every key this repo writes.
const DefaultKeyPrefix = "charging"

// maxTxAttempts bounds optimistic-lock retries when a watched key changes.
const maxTxAttempts = 5

// Repo is a Redis implementation of bookingrepo.Repository.
//
// Layout:
//
//	{prefix}:booking:{id}          JSON record
//	{prefix}:user:{userId}:bookings list of ids, newest first
//	{prefix}:bookings              list of all ids, newest first
type Repo struct {
	client redis.UniversalClient
	prefix string
}

func NewRepo(client redis.UniversalClient, keyPrefix string) *Repo {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Repo{client: client, prefix: keyPrefix}
}

type record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	StationID string    `json:"stationId"`
	SlotFrom  string    `json:"slotFrom"`
	SlotTo    string    `json:"slotTo"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func toRecord(b domain.Booking) record {
	return record{
		ID:        string(b.ID),
		UserID:    string(b.UserID),
		StationID: string(b.StationID),
		SlotFrom:  b.SlotFrom,
		SlotTo:    b.SlotTo,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.UTC(),
	}
}

func (r record) toDomain() domain.Booking {
	return domain.Booking{
		ID:        domain.BookingID(r.ID),
		UserID:    domain.SubjectID(r.UserID),
		StationID: domain.StationID(r.StationID),
		SlotFrom:  r.SlotFrom,
		SlotTo:    r.SlotTo,
		Status:    domain.BookingStatus(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (r *Repo) bookingKey(id domain.BookingID) string {
	return r.prefix + ":booking:" + string(id)
}

func (r *Repo) userKey(userID domain.SubjectID) string {
	return r.prefix + ":user:" + string(userID) + ":bookings"
}

func (r *Repo) allKey() string {
	return r.prefix + ":bookings"
}

func (r *Repo) Insert(ctx context.Context, b domain.Booking) error {
	if b.ID == "" {
		return bookingrepo.ErrAlreadyExists
	}
	data, err := json.Marshal(toRecord(b))
	if err != nil {
		return fmt.Errorf("failed to marshal booking: %w", err)
	}
	key := r.bookingKey(b.ID)

	// Any concurrent write to the watched key aborts the transaction; the retry
	// then sees the key and reports a duplicate.
	return r.withRetry(ctx, key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return bookingrepo.ErrAlreadyExists
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			p.LPush(ctx, r.userKey(b.UserID), string(b.ID))
			p.LPush(ctx, r.allKey(), string(b.ID))
			return nil
		})
		return err
	})
}

func (r *Repo) ListByUser(ctx context.Context, userID domain.SubjectID) ([]domain.Booking, error) {
	return r.listFrom(ctx, r.userKey(userID))
}

func (r *Repo) ListAll(ctx context.Context) ([]domain.Booking, error) {
	return r.listFrom(ctx, r.allKey())
}

func (r *Repo) Cancel(ctx context.Context, userID domain.SubjectID, id domain.BookingID) (domain.Booking, error) {
	key := r.bookingKey(id)
	var out domain.Booking
	err := r.withRetry(ctx, key, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return bookingrepo.ErrNotFound
			}
			return fmt.Errorf("failed to get booking from redis: %w", err)
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal booking from redis: %w", err)
		}
		b := rec.toDomain()
		if !b.OwnedBy(userID) {
			return bookingrepo.ErrNotFound
		}
		b.Cancel()
		updated, err := json.Marshal(toRecord(b))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, updated, 0)
			return nil
		})
		if err == nil {
			out = b
		}
		return err
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (r *Repo) withRetry(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction on %s: %w", key, redis.TxFailedErr)
}

func (r *Repo) listFrom(ctx context.Context, listKey string) ([]domain.Booking, error) {
	ids, err := r.client.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings from redis: %w", err)
	}
	out := make([]domain.Booking, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.bookingKey(domain.BookingID(id)))
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings from redis: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Index entry without a record; skip it.
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal booking %s from redis: %w", ids[i], err)
		}
		out = append(out, rec.toDomain())
	}
	return out, nil
}
