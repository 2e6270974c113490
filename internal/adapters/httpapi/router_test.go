package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	memclock "github.com/evcharge/charging-stations-api/internal/adapters/memory/clock"
	membookingrepo "github.com/evcharge/charging-stations-api/internal/adapters/memory/bookingrepo"
	memstationrepo "github.com/evcharge/charging-stations-api/internal/adapters/memory/stationrepo"
	"github.com/evcharge/charging-stations-api/internal/app/bookings"
	"github.com/evcharge/charging-stations-api/internal/app/health"
	"github.com/evcharge/charging-stations-api/internal/app/stations"
)

func TestRouter_NotFoundEnvelope(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, RouterOptions{})
	rec := env.do(t, http.MethodGet, "/nope", "", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	if er := decodeError(t, rec); er.Error.Message != "Not Found" {
		t.Fatalf("message=%q", er.Error.Message)
	}
}

func TestRouter_MethodNotAllowedEnvelope(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, RouterOptions{})
	rec := env.do(t, http.MethodPut, "/stations", "", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rec.Code)
	}
	decodeError(t, rec)
}

func TestRouter_HealthIsPublic(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, RouterOptions{})
	rec := env.do(t, http.MethodGet, "/health", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"code":200,"status":"running"}` {
		t.Fatalf("body=%s", got)
	}
}

type stubChecker struct{ res health.Result }

func (c stubChecker) Check(context.Context) health.Result { return c.res }

func TestRouter_HealthStatusFollowsChecker(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(tokenNow)
	api := NewServer(
		stations.NewService(memstationrepo.NewDemoRepo()),
		bookings.NewService(membookingrepo.NewRepo(), clk),
		stubChecker{res: health.Result{Code: http.StatusBadGateway, Status: "bad-health-response"}},
		nil,
		AuthConfig{},
	)
	h := NewRouterWithOptions(api, RouterOptions{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"bad-health-response"`) {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestRouter_NilAuthMiddlewareDeniesProtectedRoutes(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(tokenNow)
	api := NewServer(
		stations.NewService(memstationrepo.NewDemoRepo()),
		bookings.NewService(membookingrepo.NewRepo(), clk),
		nil, nil, AuthConfig{},
	)
	h := NewRouter(api)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stations", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestRouter_APIPrefix(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, RouterOptions{APIPrefix: "api/v1/"})
	tok := env.token(t, "u1")

	if rec := env.do(t, http.MethodGet, "/api/v1/stations", tok, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("prefixed stations: status=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/stations", tok, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unprefixed stations: status=%d", rec.Code)
	}
	for _, p := range []string{"/health", "/api/v1/health"} {
		if rec := env.do(t, http.MethodGet, p, "", nil, nil); rec.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", p, rec.Code)
		}
	}
	rec := env.do(t, http.MethodGet, "/api/v1/nope", "", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	decodeError(t, rec)
}

func TestRouter_AuthConfig(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, RouterOptions{})
	rec := env.do(t, http.MethodGet, "/auth/config", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	cfg := decodeData[struct {
		Region     string `json:"region"`
		UserPoolID string `json:"userPoolId"`
		ClientID   string `json:"clientId"`
	}](t, rec)
	if cfg.Region != "eu-west-1" || cfg.UserPoolID != testPool || cfg.ClientID != testClient {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestRouter_RequestIDPropagates(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, RouterOptions{})
	rec := env.do(t, http.MethodGet, "/bookings", "", nil, map[string]string{RequestIDHeader: "req-42"})
	if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
		t.Fatalf("response header=%q", got)
	}
	if er := decodeError(t, rec); er.Error.RequestID != "req-42" {
		t.Fatalf("requestId=%q", er.Error.RequestID)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, RouterOptions{CORSOrigin: "https://app.example.com"})
	req := httptest.NewRequest(http.MethodOptions, "/bookings", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	env.h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow-origin=%q status=%d", got, rec.Code)
	}
}

func TestRecoverer_PanicIs500Envelope(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	h := requestLogger(logger)(recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	er := decodeError(t, rec)
	if er.Error.Message != "Internal Server Error" {
		t.Fatalf("panic value leaked: %q", er.Error.Message)
	}
	if !strings.Contains(logs.String(), "panic.recovered") {
		t.Fatalf("logs=%s", logs.String())
	}
}

func TestWriteAppError_UnexpectedCarriesMessage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeAppError(rec, httptest.NewRequest(http.MethodGet, "/", nil), context.DeadlineExceeded)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	if er := decodeError(t, rec); er.Error.Message != context.DeadlineExceeded.Error() {
		t.Fatalf("message=%q", er.Error.Message)
	}
}

func TestNormalizePrefix(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"": "", "/": "", "api": "/api", "/api/v1/": "/api/v1", " /x ": "/x"} {
		if got := normalizePrefix(in); got != want {
			t.Fatalf("normalizePrefix(%q)=%q, want %q", in, got, want)
		}
	}
}
