package stations

import (
	"context"
	"errors"

	"github.com/evcharge/charging-stations-api/internal/domain"
	"github.com/evcharge/charging-stations-api/internal/ports/out/stationrepo"
)

// Service exposes read-only station queries.
type Service struct {
	repo stationrepo.Repository
}

func NewService(repo stationrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns every station in the repository's fixed order.
func (s *Service) List(ctx context.Context) ([]domain.Station, error) {
	return s.repo.List(ctx)
}

// GetByID returns the station with exactly the given id. found is false when no
// such station exists; that is not an error.
func (s *Service) GetByID(ctx context.Context, id domain.StationID) (st domain.Station, found bool, err error) {
	st, err = s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, stationrepo.ErrNotFound) {
			return domain.Station{}, false, nil
		}
		return domain.Station{}, false, err
	}
	return st, true, nil
}
