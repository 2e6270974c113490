package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evcharge/charging-stations-api/internal/adapters/httpapi"
	membookingrepo "github.com/evcharge/charging-stations-api/internal/adapters/memory/bookingrepo"
	memidempotency "github.com/evcharge/charging-stations-api/internal/adapters/memory/idempotency"
	memstationrepo "github.com/evcharge/charging-stations-api/internal/adapters/memory/stationrepo"
	pgbookingrepo "github.com/evcharge/charging-stations-api/internal/adapters/postgres/bookingrepo"
	pgidempotency "github.com/evcharge/charging-stations-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/evcharge/charging-stations-api/internal/adapters/postgres/testutil"
	redisadapter "github.com/evcharge/charging-stations-api/internal/adapters/redis"
	redisbookingrepo "github.com/evcharge/charging-stations-api/internal/adapters/redis/bookingrepo"
	"github.com/evcharge/charging-stations-api/internal/app/bookings"
	"github.com/evcharge/charging-stations-api/internal/app/health"
	"github.com/evcharge/charging-stations-api/internal/app/stations"
	"github.com/evcharge/charging-stations-api/internal/platform/auth/jwks_testutil"
	"github.com/evcharge/charging-stations-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/evcharge/charging-stations-api/internal/platform/clock"
	"github.com/evcharge/charging-stations-api/internal/platform/config"
	bookingrepoport "github.com/evcharge/charging-stations-api/internal/ports/out/bookingrepo"
	idempotencyport "github.com/evcharge/charging-stations-api/internal/ports/out/idempotency"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
	backendRedis    backend = "redis"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "redis":
		return []backend{backendRedis}
	case "all":
		return []backend{backendMemory, backendPostgres, backendRedis}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|redis|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	kp      jwks_testutil.Keypair
	jwtCfg  config.JWTConfig
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := platformclock.NewSystemClock()

	var (
		bookingRepo bookingrepoport.Repository
		idemStore   idempotencyport.Store
	)
	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		bookingRepo = pgbookingrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, clk, time.Hour)
	case backendRedis:
		addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
		if addr == "" {
			t.Skip("REDIS_ADDR not set; skipping redis itest")
		}
		client, err := redisadapter.NewUniversalClient(addr)
		if err != nil {
			t.Fatalf("NewUniversalClient: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisadapter.Ping(ctx, client); err != nil {
			t.Fatalf("Ping: %v", err)
		}
		prefix := "itest-" + uuid.NewString()
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if keys, _ := client.Keys(ctx, prefix+":*").Result(); len(keys) > 0 {
				client.Del(ctx, keys...)
			}
			_ = client.Close()
		})
		bookingRepo = redisbookingrepo.NewRepo(client, prefix)
		idemStore = memidempotency.NewStore(clk, time.Hour)
	case backendMemory:
		bookingRepo = membookingrepo.NewRepo()
		idemStore = memidempotency.NewStore(clk, time.Hour)
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	kp, err := jwks_testutil.GenerateRSAKeypair("itest-kid")
	if err != nil {
		t.Fatalf("GenerateRSAKeypair: %v", err)
	}
	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	t.Cleanup(jwksSrv.Close)
	setKeys([]jwks_testutil.Keypair{kp})

	jwtCfg := config.JWTConfig{
		Region:                 "il-central-1",
		UserPoolID:             "il-central-1_ITEST",
		ClientID:               "itest-client",
		Endpoint:               jwksSrv.URL,
		ClockSkew:              30 * time.Second,
		JWKSRefreshInterval:    10 * time.Minute,
		JWKSMinRefreshInterval: time.Second,
		HTTPTimeout:            2 * time.Second,
	}
	verifier, err := jwtverifier.New(jwtCfg)
	if err != nil {
		t.Fatalf("jwtverifier.New: %v", err)
	}

	api := httpapi.NewServer(
		stations.NewService(memstationrepo.NewDemoRepo()),
		bookings.NewService(bookingRepo, clk),
		health.StaticChecker{},
		idemStore,
		httpapi.AuthConfig{Region: jwtCfg.Region, UserPoolID: jwtCfg.UserPoolID, ClientID: jwtCfg.ClientID},
	)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewAuthMiddleware(verifier),
		AdminGroups:    []string{"admins"},
		CORSOrigin:     "*",
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		kp:      kp,
		jwtCfg:  jwtCfg,
	}
}

// uniqueSubject keeps runs against a shared database from seeing each other's bookings.
func uniqueSubject(name string) string {
	return name + "-" + uuid.NewString()
}

func (s *testServer) token(t *testing.T, sub string, groups ...string) string {
	t.Helper()
	g := []any{}
	for _, grp := range groups {
		g = append(g, grp)
	}
	tok, err := jwks_testutil.MintRS256JWT(s.kp, jwks_testutil.TokenOptions{
		Issuer:    s.jwtCfg.Issuer(),
		Audience:  s.jwtCfg.ClientID,
		Subject:   sub,
		Username:  sub,
		Groups:    g,
		Now:       time.Now(),
		ExpiresIn: time.Hour,
	})
	if err != nil {
		t.Fatalf("MintRS256JWT: %v", err)
	}
	return tok
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any, headers map[string]string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Code  int `json:"code"`
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

type bookingJSON struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	StationID string `json:"stationId"`
	SlotFrom  string `json:"slotFrom"`
	SlotTo    string `json:"slotTo"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

type dataResponse[T any] struct {
	Code int `json:"code"`
	Data T   `json:"data"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireError(t *testing.T, status int, body []byte, wantStatus int, wantMessage string) errorResponse {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Code != wantStatus {
		t.Fatalf("envelope code=%d want=%d body=%s", got.Code, wantStatus, string(body))
	}
	if wantMessage != "" && got.Error.Message != wantMessage {
		t.Fatalf("error.message=%q want=%q body=%s", got.Error.Message, wantMessage, string(body))
	}
	return got
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
