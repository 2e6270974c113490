package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/evcharge/charging-stations-api/internal/platform/auth/jwks_testutil"
	"github.com/evcharge/charging-stations-api/internal/platform/config"
)

// Tiny dev-only stand-in for a Cognito user pool: it publishes a JWKS and
// mints ID tokens carrying the claims the gateway reads.
//
// Point the API at it with COGNITO_ENDPOINT=<devjwt base URL>.

type issuer struct {
	cfg config.JWTConfig
	kp  jwks_testutil.Keypair
	ttl time.Duration
	now func() time.Time
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	port := getenv("PORT", "5556")
	cfg := config.JWTConfig{
		Region:     getenv("COGNITO_REGION", "il-central-1"),
		UserPoolID: getenv("COGNITO_USER_POOL_ID", "il-central-1_DEV"),
		ClientID:   getenv("COGNITO_CLIENT_ID", "dev-client"),
		Endpoint:   getenv("COGNITO_ENDPOINT", "http://localhost:"+port),
	}
	ttl := getenvDuration("TTL", 30*time.Minute)

	kp, err := jwks_testutil.GenerateRSAKeypair(getenv("KID", "dev-kid-1"))
	if err != nil {
		logger.Fatal().Err(err).Msg("generate key")
	}
	iss := &issuer{cfg: cfg, kp: kp, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           iss.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info().
		Str("port", port).
		Str("iss", cfg.Issuer()).
		Str("aud", cfg.ClientID).
		Str("kid", kp.Kid).
		Dur("ttl", ttl).
		Msg("devjwt listening")
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("listen")
	}
}

func (i *issuer) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/{pool}/.well-known/jwks.json", i.jwks)
	r.Get("/.well-known/jwks.json", i.jwks)
	// GET /token?sub=alice&username=alice&email=a@example.com&groups=admins,ops
	r.Get("/token", i.token)
	return r
}

func (i *issuer) jwks(w http.ResponseWriter, r *http.Request) {
	if pool := chi.URLParam(r, "pool"); pool != "" && pool != i.cfg.UserPoolID {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jwks_testutil.JWKSJSON([]jwks_testutil.Keypair{i.kp}))
}

func (i *issuer) token(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sub := strings.TrimSpace(q.Get("sub"))
	if sub == "" {
		http.Error(w, "missing sub", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(q.Get("username"))
	if username == "" {
		username = sub
	}
	groups := []string{}
	for _, g := range strings.Split(q.Get("groups"), ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}

	now := i.now()
	skew := -5 * time.Second
	token, err := jwks_testutil.MintRS256JWT(i.kp, jwks_testutil.TokenOptions{
		Issuer:    i.cfg.Issuer(),
		Audience:  i.cfg.ClientID,
		Subject:   sub,
		Username:  username,
		Email:     strings.TrimSpace(q.Get("email")),
		Groups:    groups,
		Now:       now,
		ExpiresIn: i.ttl,
		NotBefore: &skew,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to mint token: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token":  token,
		"sub":    sub,
		"groups": groups,
		"iss":    i.cfg.Issuer(),
		"aud":    i.cfg.ClientID,
		"exp":    now.Add(i.ttl).Unix(),
	})
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
