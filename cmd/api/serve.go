package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/evcharge/charging-stations-api/internal/adapters/httpapi"
	"github.com/evcharge/charging-stations-api/internal/adapters/lambda"
	membookingrepo "github.com/evcharge/charging-stations-api/internal/adapters/memory/bookingrepo"
	memidempotency "github.com/evcharge/charging-stations-api/internal/adapters/memory/idempotency"
	memstationrepo "github.com/evcharge/charging-stations-api/internal/adapters/memory/stationrepo"
	"github.com/evcharge/charging-stations-api/internal/adapters/postgres"
	pgbookingrepo "github.com/evcharge/charging-stations-api/internal/adapters/postgres/bookingrepo"
	pgidempotency "github.com/evcharge/charging-stations-api/internal/adapters/postgres/idempotency"
	"github.com/evcharge/charging-stations-api/internal/adapters/redis"
	redisbookingrepo "github.com/evcharge/charging-stations-api/internal/adapters/redis/bookingrepo"
	"github.com/evcharge/charging-stations-api/internal/app/bookings"
	"github.com/evcharge/charging-stations-api/internal/app/health"
	"github.com/evcharge/charging-stations-api/internal/app/stations"
	"github.com/evcharge/charging-stations-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/evcharge/charging-stations-api/internal/platform/clock"
	"github.com/evcharge/charging-stations-api/internal/platform/config"
	bookingrepoport "github.com/evcharge/charging-stations-api/internal/ports/out/bookingrepo"
	idempotencyport "github.com/evcharge/charging-stations-api/internal/ports/out/idempotency"
)

func serve(ctx context.Context, rt *runtime, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger := rt.cfg, rt.logger
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}

	handler, cleanup, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", addr).
			Str("storage", cfg.StorageBackend).
			Bool("auth_disabled", cfg.AuthDisabled).
			Bool("use_lambda", cfg.UseLambda).
			Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildHandler assembles the router and its dependencies. cleanup releases
// storage connections and is never nil.
func buildHandler(ctx context.Context, cfg config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	cleanup := func() {}

	var authMW func(http.Handler) http.Handler
	if cfg.AuthDisabled {
		logger.Warn().Msg("authentication is disabled; every request runs as the local identity")
		authMW = httpapi.NewDisabledAuthMiddleware()
	} else {
		verifier, err := jwtverifier.New(cfg.JWT)
		if err != nil {
			return nil, cleanup, err
		}
		authMW = httpapi.NewAuthMiddleware(verifier)
	}

	clk := platformclock.NewSystemClock()

	var (
		bookingRepo bookingrepoport.Repository
		idemStore   idempotencyport.Store
	)
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, cleanup, fmt.Errorf("postgres: %w", err)
		}
		cleanup = pool.Close
		bookingRepo = pgbookingrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, clk, cfg.IdempotencyTTL)
	case config.StorageRedis:
		client, err := redis.NewUniversalClient(cfg.RedisAddr)
		if err != nil {
			return nil, cleanup, err
		}
		if err := redis.Ping(ctx, client); err != nil {
			_ = client.Close()
			return nil, cleanup, err
		}
		cleanup = func() { _ = client.Close() }
		bookingRepo = redisbookingrepo.NewRepo(client, redisbookingrepo.DefaultKeyPrefix)
		idemStore = memidempotency.NewStore(clk, cfg.IdempotencyTTL)
	default:
		bookingRepo = membookingrepo.NewRepo()
		idemStore = memidempotency.NewStore(clk, cfg.IdempotencyTTL)
	}

	var checker health.Checker = health.StaticChecker{}
	if cfg.UseLambda {
		inv, err := lambda.NewFromRegion(ctx, cfg.AWSRegion)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		checker = health.NewRemoteChecker(inv, cfg.HealthLambdaFunctionName)
	}

	api := httpapi.NewServer(
		stations.NewService(memstationrepo.NewDemoRepo()),
		bookings.NewService(bookingRepo, clk),
		checker,
		idemStore,
		httpapi.AuthConfig{
			Region:     cfg.JWT.Region,
			UserPoolID: cfg.JWT.UserPoolID,
			ClientID:   cfg.JWT.ClientID,
		},
	)

	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		AuthDisabled:   cfg.AuthDisabled,
		AdminGroups:    cfg.AdminGroups,
		APIPrefix:      cfg.APIPrefix,
		CORSOrigin:     cfg.CORSOrigin,
		Logger:         &logger,
	})
	return handler, cleanup, nil
}
