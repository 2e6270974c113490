package stationrepo

import (
	"context"
	"errors"

	"github.com/evcharge/charging-stations-api/internal/domain"
)

// ErrNotFound indicates the requested station does not exist.
var ErrNotFound = errors.New("station not found")

// Repository provides read access to charging stations.
//
// List returns stations in a stable order fixed by the implementation.
type Repository interface {
	List(ctx context.Context) ([]domain.Station, error)
	GetByID(ctx context.Context, id domain.StationID) (domain.Station, error)
}
