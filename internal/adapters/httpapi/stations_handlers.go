package httpapi

import (
	"net/http"

	"github.com/oapi-codegen/nullable"

	"github.com/evcharge/charging-stations-api/internal/domain"
)

type stationDTO struct {
	StationID string                    `json:"stationId"`
	Name      string                    `json:"name"`
	Address   nullable.Nullable[string] `json:"address,omitempty"`
	Status    nullable.Nullable[string] `json:"status,omitempty"`
}

func stationFromDomain(st domain.Station) stationDTO {
	return stationDTO{
		StationID: string(st.ID),
		Name:      st.Name,
		Address:   nullableString(st.Address),
		Status:    nullableNonEmpty(string(st.Status)),
	}
}

func (s *Server) ListStations(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	sts, err := s.Stations.List(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]stationDTO, 0, len(sts))
	for _, st := range sts {
		out = append(out, stationFromDomain(st))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) GetStation(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	id, ok := bindPathParam(w, r, "stationId")
	if !ok {
		return
	}
	st, found, err := s.Stations.GetByID(r.Context(), domain.StationID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Station not found", nil)
		return
	}
	writeData(w, http.StatusOK, stationFromDomain(st))
}
