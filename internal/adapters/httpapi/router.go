package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	// AuthMiddleware resolves the caller identity on protected routes. When nil,
	// NewDisabledAuthMiddleware is used if AuthDisabled is set and every
	// protected route answers 401 otherwise.
	AuthMiddleware func(http.Handler) http.Handler
	// AuthDisabled turns group checks into no-ops.
	AuthDisabled bool
	// AdminGroups may call the operator routes.
	AdminGroups []string
	// APIPrefix mounts the API under a path such as /api/v1. /health is always
	// served at the root as well.
	APIPrefix string
	// CORSOrigin is "*" or a comma-separated list of origins.
	CORSOrigin string
	Logger     *zerolog.Logger
}

// NewRouter constructs the API HTTP router with default options.
func NewRouter(api *Server) http.Handler {
	return NewRouterWithOptions(api, RouterOptions{})
}

func NewRouterWithOptions(api *Server, opts RouterOptions) http.Handler {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	authMW := opts.AuthMiddleware
	if authMW == nil {
		if opts.AuthDisabled {
			authMW = NewDisabledAuthMiddleware()
		} else {
			authMW = denyAll
		}
	}

	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(recoverer)
	r.Use(cors.Handler(corsOptions(opts.CORSOrigin)))
	r.Use(limitBody(maxBodyBytes))

	// Set before mounting so sub-routers inherit them.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "", "Not Found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "", "Method Not Allowed", nil)
	})

	routes := func(r chi.Router) {
		r.Get("/health", api.GetHealth)
		r.Get("/auth/config", api.GetAuthConfig)

		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Get("/users/me", api.GetMe)

			r.Get("/stations", api.ListStations)
			r.Get("/stations/{stationId}", api.GetStation)

			r.Get("/bookings", api.ListMyBookings)
			r.Post("/bookings", api.CreateBooking)
			r.Delete("/bookings/{bookingId}", api.CancelBooking)

			r.With(RequireGroups(opts.AuthDisabled, opts.AdminGroups...)).
				Get("/admin/bookings", api.ListAllBookings)
		})
	}

	prefix := normalizePrefix(opts.APIPrefix)
	if prefix == "" {
		routes(r)
	} else {
		// The frontend probes /health without the prefix.
		r.Get("/health", api.GetHealth)
		r.Route(prefix, routes)
	}
	return r
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	})
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func corsOptions(origin string) cors.Options {
	origins := []string{"*"}
	if o := strings.TrimSpace(origin); o != "" && o != "*" {
		origins = origins[:0]
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}
}
