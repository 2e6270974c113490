package stationrepo

import (
	"context"
	"fmt"

	"github.com/evcharge/charging-stations-api/internal/domain"
	"github.com/evcharge/charging-stations-api/internal/ports/out/stationrepo"
)

// Repo is a read-only, in-memory implementation of stationrepo.Repository.
// The station set is fixed at construction, so no locking is needed.
type Repo struct {
	stations []domain.Station
	byID     map[domain.StationID]int
}

// DemoStations is the seed data served when no other station source is configured.
func DemoStations() []domain.Station {
	return []domain.Station{
		{ID: "st-001", Name: "Demo Station 1", Status: domain.StationStatusAvailable},
		{ID: "st-002", Name: "Demo Station 2", Status: domain.StationStatusBusy},
	}
}

// NewRepo builds a repo over stations, preserving their order.
// Duplicate or empty ids and unknown statuses are rejected.
func NewRepo(stations []domain.Station) (*Repo, error) {
	r := &Repo{
		stations: make([]domain.Station, 0, len(stations)),
		byID:     make(map[domain.StationID]int, len(stations)),
	}
	for _, s := range stations {
		if s.ID == "" {
			return nil, fmt.Errorf("station with empty id")
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate station id %q", s.ID)
		}
		if !s.Status.Valid() {
			return nil, fmt.Errorf("station %q: unknown status %q", s.ID, s.Status)
		}
		r.byID[s.ID] = len(r.stations)
		r.stations = append(r.stations, cloneStation(s))
	}
	return r, nil
}

// NewDemoRepo returns a repo seeded with DemoStations.
func NewDemoRepo() *Repo {
	r, err := NewRepo(DemoStations())
	if err != nil {
		panic(err) // seed data is static
	}
	return r
}

func (r *Repo) List(ctx context.Context) ([]domain.Station, error) {
	_ = ctx
	out := make([]domain.Station, 0, len(r.stations))
	for _, s := range r.stations {
		out = append(out, cloneStation(s))
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.StationID) (domain.Station, error) {
	_ = ctx
	i, ok := r.byID[id]
	if !ok {
		return domain.Station{}, stationrepo.ErrNotFound
	}
	return cloneStation(r.stations[i]), nil
}

func cloneStation(s domain.Station) domain.Station {
	cp := s
	if s.Address != nil {
		a := *s.Address
		cp.Address = &a
	}
	return cp
}
