package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/evcharge/charging-stations-api/internal/domain"
	"github.com/evcharge/charging-stations-api/internal/platform/auth/jwtverifier"
)

// TokenVerifier verifies a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwtverifier.Claims, error)
}

// NewAuthMiddleware enforces Authorization: Bearer <JWT> on the routes it wraps.
//
// On success, it stores the authenticated identity in request context.
func NewAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Missing Authorization Bearer token", nil)
				return
			}

			claims, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", authFailureMessage(err), nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identityFromClaims(claims))))
		})
	}
}

// NewDisabledAuthMiddleware attaches the local placeholder identity to every
// request without looking at any header.
//
// This is intended for local workflows where standing up a user pool is
// overkill. Configuration refuses it in production.
func NewDisabledAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), domain.LocalIdentity())))
		})
	}
}

// RequireGroups allows the request only if the caller belongs to at least one
// of the allowed groups. With auth disabled it lets everything through.
func RequireGroups(authDisabled bool, allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authDisabled {
				next.ServeHTTP(w, r)
				return
			}
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			if !id.HasAnyGroup(allowed...) {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from "Bearer <token>". The scheme is matched
// case-insensitively and must be followed by whitespace.
func bearerToken(h string) (string, bool) {
	const scheme = "bearer"
	if len(h) <= len(scheme) || !strings.EqualFold(h[:len(scheme)], scheme) {
		return "", false
	}
	rest := h[len(scheme):]
	tok := strings.TrimLeft(rest, " \t")
	if len(tok) == len(rest) {
		return "", false
	}
	tok = strings.TrimRight(tok, " \t")
	if tok == "" {
		return "", false
	}
	return tok, true
}

func authFailureMessage(err error) string {
	if errors.Is(err, jwtverifier.ErrMissingSubject) {
		return "Invalid token (missing sub)"
	}
	msg := strings.TrimPrefix(err.Error(), jwtverifier.ErrUnauthorized.Error()+": ")
	if msg == "" || msg == jwtverifier.ErrUnauthorized.Error() {
		return "Invalid token"
	}
	return msg
}

func identityFromClaims(c jwtverifier.Claims) domain.Identity {
	return domain.Identity{
		Subject:  domain.SubjectID(c.Subject),
		Email:    c.Email,
		Username: c.Username,
		Groups:   c.Groups,
		Claims:   c.Raw,
	}
}
