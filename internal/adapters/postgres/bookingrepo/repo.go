package bookingrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/evcharge/charging-stations-api/internal/adapters/postgres"
	"github.com/evcharge/charging-stations-api/internal/domain"
	"github.com/evcharge/charging-stations-api/internal/ports/out/bookingrepo"
)

// Repo is a Postgres implementation of bookingrepo.Repository.
//
// Newest-first means reverse insertion order, tracked by the seq column.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const bookingColumns = `id, user_id, station_id, slot_from, slot_to, status, created_at`

func (r *Repo) Insert(ctx context.Context, b domain.Booking) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	if b.ID == "" {
		return bookingrepo.ErrAlreadyExists
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		string(b.ID),
		string(b.UserID),
		string(b.StationID),
		b.SlotFrom,
		b.SlotTo,
		string(b.Status),
		b.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return bookingrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) ListByUser(ctx context.Context, userID domain.SubjectID) ([]domain.Booking, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY seq DESC
	`, string(userID))
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *Repo) ListAll(ctx context.Context) ([]domain.Booking, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		ORDER BY seq DESC
	`)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// Cancel matches on both id and owner, so a foreign booking is indistinguishable
// from a missing one.
func (r *Repo) Cancel(ctx context.Context, userID domain.SubjectID, id domain.BookingID) (domain.Booking, error) {
	if r.pool == nil {
		return domain.Booking{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $3
		WHERE id = $1 AND user_id = $2
		RETURNING `+bookingColumns,
		string(id),
		string(userID),
		string(domain.BookingStatusCancelled),
	)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, bookingrepo.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Booking, error) {
		return scanBooking(row)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Booking{}
	}
	return out, nil
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b                       domain.Booking
		id, user, station, stat string
	)
	if err := row.Scan(&id, &user, &station, &b.SlotFrom, &b.SlotTo, &stat, &b.CreatedAt); err != nil {
		return domain.Booking{}, err
	}
	b.ID = domain.BookingID(id)
	b.UserID = domain.SubjectID(user)
	b.StationID = domain.StationID(station)
	b.Status = domain.BookingStatus(stat)
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}
