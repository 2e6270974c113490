package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime"

	"github.com/evcharge/charging-stations-api/internal/app/bookings"
	"github.com/evcharge/charging-stations-api/internal/app/health"
	"github.com/evcharge/charging-stations-api/internal/app/stations"
	"github.com/evcharge/charging-stations-api/internal/domain"
	"github.com/evcharge/charging-stations-api/internal/ports/out/idempotency"
)

// AuthConfig is published to the frontend so it can talk to the user pool.
type AuthConfig struct {
	Region     string
	UserPoolID string
	ClientID   string
}

// Server holds the HTTP handlers. Idem may be nil, which disables
// Idempotency-Key replay.
type Server struct {
	Stations *stations.Service
	Bookings *bookings.Service
	Health   health.Checker
	Idem     idempotency.Store
	Auth     AuthConfig
}

func NewServer(stationsSvc *stations.Service, bookingsSvc *bookings.Service, checker health.Checker, idem idempotency.Store, auth AuthConfig) *Server {
	if checker == nil {
		checker = health.StaticChecker{}
	}
	return &Server{
		Stations: stationsSvc,
		Bookings: bookingsSvc,
		Health:   checker,
		Idem:     idem,
		Auth:     auth,
	}
}

// GetHealth answers with the checker result as-is; the HTTP status follows its code.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	res := s.Health.Check(r.Context())
	writeJSON(w, res.Code, res)
}

type authConfigDTO struct {
	Region     nullable.Nullable[string] `json:"region,omitempty"`
	UserPoolID nullable.Nullable[string] `json:"userPoolId,omitempty"`
	ClientID   nullable.Nullable[string] `json:"clientId,omitempty"`
}

func (s *Server) GetAuthConfig(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, authConfigDTO{
		Region:     nullableNonEmpty(s.Auth.Region),
		UserPoolID: nullableNonEmpty(s.Auth.UserPoolID),
		ClientID:   nullableNonEmpty(s.Auth.ClientID),
	})
}

type meDTO struct {
	UserID   string                    `json:"userId"`
	Email    nullable.Nullable[string] `json:"email,omitempty"`
	Username nullable.Nullable[string] `json:"username,omitempty"`
	Groups   []string                  `json:"groups"`
}

func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	groups := id.Groups
	if groups == nil {
		groups = []string{}
	}
	writeData(w, http.StatusOK, meDTO{
		UserID:   string(id.Subject),
		Email:    nullableString(id.Email),
		Username: nullableString(id.Username),
		Groups:   groups,
	})
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return domain.Identity{}, false
	}
	return id, true
}

// bindPathParam binds a required, non-empty simple-style path parameter. It
// writes a 400 and reports false on failure.
func bindPathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil || v == "" {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid path parameter "+name, map[string]any{name: "must be a non-empty string"})
		return "", false
	}
	return v, true
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if ae := (*bookings.Error)(nil); errors.As(err, &ae) {
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	writeUnexpected(w, r, err)
}

func nullableString(p *string) nullable.Nullable[string] {
	var out nullable.Nullable[string]
	if p != nil {
		out.Set(*p)
	}
	return out
}

func nullableNonEmpty(s string) nullable.Nullable[string] {
	var out nullable.Nullable[string]
	if s != "" {
		out.Set(s)
	}
	return out
}
