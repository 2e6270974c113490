package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	memclock "github.com/evcharge/charging-stations-api/internal/adapters/memory/clock"
	membookingrepo "github.com/evcharge/charging-stations-api/internal/adapters/memory/bookingrepo"
	memidempotency "github.com/evcharge/charging-stations-api/internal/adapters/memory/idempotency"
	memstationrepo "github.com/evcharge/charging-stations-api/internal/adapters/memory/stationrepo"
	"github.com/evcharge/charging-stations-api/internal/app/bookings"
	"github.com/evcharge/charging-stations-api/internal/app/stations"
	"github.com/evcharge/charging-stations-api/internal/platform/auth/jwks_testutil"
	"github.com/evcharge/charging-stations-api/internal/platform/auth/jwtverifier"
	"github.com/evcharge/charging-stations-api/internal/platform/config"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var tokenNow = time.Unix(1700000000, 0)

const (
	testPool   = "eu-west-1_TEST"
	testClient = "spa-client"
)

type testEnv struct {
	h      http.Handler
	jwtCfg config.JWTConfig
	kp     jwks_testutil.Keypair
}

// newTestEnv builds the full router over in-memory adapters. Unless
// opts.AuthDisabled is set, requests are verified against a local JWKS server.
func newTestEnv(t *testing.T, opts RouterOptions) *testEnv {
	t.Helper()

	kp, err := jwks_testutil.GenerateRSAKeypair("kid-1")
	if err != nil {
		t.Fatalf("GenerateRSAKeypair: %v", err)
	}
	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	t.Cleanup(jwksSrv.Close)
	setKeys([]jwks_testutil.Keypair{kp})

	jwtCfg := config.JWTConfig{
		Region:                 "eu-west-1",
		UserPoolID:             testPool,
		ClientID:               testClient,
		Endpoint:               jwksSrv.URL,
		ClockSkew:              0,
		JWKSRefreshInterval:    10 * time.Minute,
		JWKSMinRefreshInterval: time.Second,
		HTTPTimeout:            2 * time.Second,
	}

	if opts.AuthMiddleware == nil && !opts.AuthDisabled {
		v, err := jwtverifier.NewWithOptions(jwtCfg, nil, fixedClock{t: tokenNow})
		if err != nil {
			t.Fatalf("NewWithOptions: %v", err)
		}
		opts.AuthMiddleware = NewAuthMiddleware(v)
	}
	if opts.AdminGroups == nil {
		opts.AdminGroups = []string{"admins"}
	}

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	api := NewServer(
		stations.NewService(memstationrepo.NewDemoRepo()),
		bookings.NewService(membookingrepo.NewRepo(), clk),
		nil,
		memidempotency.NewStore(clk, time.Hour),
		AuthConfig{Region: jwtCfg.Region, UserPoolID: jwtCfg.UserPoolID, ClientID: jwtCfg.ClientID},
	)

	return &testEnv{
		h:      NewRouterWithOptions(api, opts),
		jwtCfg: jwtCfg,
		kp:     kp,
	}
}

// token mints a valid token for sub. groups may be nil.
func (e *testEnv) token(t *testing.T, sub string, groups ...string) string {
	t.Helper()
	opts := jwks_testutil.TokenOptions{
		Issuer:    e.jwtCfg.Issuer(),
		Audience:  testClient,
		Subject:   sub,
		Now:       tokenNow,
		ExpiresIn: 10 * time.Minute,
	}
	if groups != nil {
		opts.Groups = groups
	}
	return e.mint(t, opts)
}

func (e *testEnv) mint(t *testing.T, opts jwks_testutil.TokenOptions) string {
	t.Helper()
	tok, err := jwks_testutil.MintRS256JWT(e.kp, opts)
	if err != nil {
		t.Fatalf("MintRS256JWT: %v", err)
	}
	return tok
}

// do sends a request. token may be empty; body is JSON-encoded unless it is
// already a string.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Code  int `json:"code"`
	Error struct {
		Message   string         `json:"message"`
		Code      string         `json:"code"`
		Details   map[string]any `json:"details"`
		RequestID string         `json:"requestId"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var er errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error response: %v body=%s", err, rec.Body.String())
	}
	if er.Code != rec.Code {
		t.Fatalf("envelope code=%d, http status=%d", er.Code, rec.Code)
	}
	return er
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Code int `json:"code"`
		Data T   `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rec.Body.String())
	}
	if env.Code != rec.Code {
		t.Fatalf("envelope code=%d, http status=%d", env.Code, rec.Code)
	}
	return env.Data
}
