package jwtverifier

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evcharge/charging-stations-api/internal/platform/config"
)

var (
	// ErrUnauthorized is wrapped by every verification failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingSubject marks a correctly signed token without a "sub" claim.
	ErrMissingSubject = fmt.Errorf("%w: invalid token (missing sub)", ErrUnauthorized)
	// ErrMisconfigured is returned by New when the user pool cannot be derived.
	ErrMisconfigured = errors.New("jwt verifier misconfigured")
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Verifier checks Cognito user pool tokens against the pool's JWKS.
//
// Keys are fetched on first use and cached. The cache is refreshed on
// JWKSRefreshInterval and when a token names an unknown kid (at most once per
// JWKSMinRefreshInterval). A Verifier is safe for concurrent use.
type Verifier struct {
	cfg     config.JWTConfig
	jwksURL string
	client  *http.Client
	clock   Clock
	parser  *jwt.Parser

	mu          sync.Mutex
	keysByKID   map[string]*rsa.PublicKey
	lastRefresh time.Time
	refreshing  bool
	refreshDone chan struct{}
}

func New(cfg config.JWTConfig) (*Verifier, error) {
	return NewWithOptions(cfg, nil, nil)
}

func NewWithOptions(cfg config.JWTConfig, httpClient *http.Client, clock Clock) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if clock == nil {
		clock = realClock{}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer()),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithTimeFunc(clock.Now),
	}
	if cfg.ClientID != "" {
		opts = append(opts, jwt.WithAudience(cfg.ClientID))
	}

	return &Verifier{
		cfg:       cfg,
		jwksURL:   cfg.JWKSURL(),
		client:    httpClient,
		clock:     clock,
		parser:    jwt.NewParser(opts...),
		keysByKID: map[string]*rsa.PublicKey{},
	}, nil
}

// Verify verifies a JWT and decodes its claims.
//
// Verification:
// - RS256 signature using keys fetched from JWKS
// - iss, exp (required), nbf/iat when present, aud when a client id is configured
//
// Every returned error wraps ErrUnauthorized; its message carries the reason.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	mc := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, mc, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid")
		}
		// Refresh rules:
		// - refresh periodically (rotation), even if kid exists in cache
		// - refresh on unknown kid, bounded by min refresh interval
		if err := v.maybeRefresh(ctx, kid); err != nil {
			return nil, fmt.Errorf("fetching signing keys: %w", err)
		}
		pub := v.getKey(kid)
		if pub == nil {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
		return pub, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return decodeClaims(mc)
}

func (v *Verifier) getKey(kid string) *rsa.PublicKey {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.keysByKID[kid]
}

func (v *Verifier) maybeRefresh(ctx context.Context, kid string) error {
	now := v.clock.Now()

	v.mu.Lock()
	needsIntervalRefresh := !v.lastRefresh.IsZero() && v.cfg.JWKSRefreshInterval > 0 && now.Sub(v.lastRefresh) >= v.cfg.JWKSRefreshInterval
	unknownKid := v.keysByKID[kid] == nil
	allowedUnknownKidRefresh := v.lastRefresh.IsZero() || v.cfg.JWKSMinRefreshInterval <= 0 || now.Sub(v.lastRefresh) >= v.cfg.JWKSMinRefreshInterval
	shouldRefresh := needsIntervalRefresh || (unknownKid && allowedUnknownKidRefresh)

	if !shouldRefresh {
		v.mu.Unlock()
		return nil
	}

	// Deduplicate concurrent refresh attempts.
	if v.refreshing {
		ch := v.refreshDone
		v.mu.Unlock()
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	v.refreshing = true
	v.refreshDone = make(chan struct{})
	ch := v.refreshDone
	v.mu.Unlock()

	err := v.refresh(ctx)

	v.mu.Lock()
	v.refreshing = false
	close(ch)
	v.mu.Unlock()

	return err
}

func (v *Verifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("jwks fetch failed: status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	keys, err := parseJWKS(body)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.keysByKID = keys
	v.lastRefresh = v.clock.Now()
	v.mu.Unlock()

	return nil
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func parseJWKS(b []byte) (map[string]*rsa.PublicKey, error) {
	var set jwks
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, err
	}
	out := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" || k.N == "" || k.E == "" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, err
		}
		e := new(big.Int).SetBytes(eb)
		if !e.IsInt64() || e.Int64() <= 0 || e.Int64() > int64(^uint32(0)>>1) {
			return nil, fmt.Errorf("invalid jwk exponent")
		}
		out[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(e.Int64()),
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable jwks keys")
	}
	return out, nil
}
