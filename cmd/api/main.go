package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/condo-bookings/internal/http/handlers"
	"github.com/diagnosis/condo-bookings/internal/http/middleware"
	"github.com/diagnosis/condo-bookings/internal/notify"
	"github.com/diagnosis/condo-bookings/internal/platform/mailer"
	"github.com/diagnosis/condo-bookings/internal/repo/postgres"
	"github.com/diagnosis/condo-bookings/internal/scheduler"
	"github.com/diagnosis/condo-bookings/internal/service"
	"github.com/diagnosis/condo-bookings/pkg/auth"
	"github.com/diagnosis/condo-bookings/pkg/cache"
	"github.com/diagnosis/condo-bookings/pkg/config"
	"github.com/diagnosis/condo-bookings/pkg/database"
	"github.com/diagnosis/condo-bookings/pkg/events"
	"github.com/diagnosis/condo-bookings/pkg/logger"
	mw "github.com/diagnosis/condo-bookings/pkg/middleware"
)

func main() {
	if err := run(); err != nil {
		logger.Error("Condo bookings service exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
	}
	store := postgres.NewStore(pool)

	// Redis backs rate limiting and idempotency. Without it idempotency
	// falls back to Postgres and throttling is off.
	var (
		limiter     middleware.Limiter
		idempotency mw.IdempotencyStore
		keyCleaner  scheduler.KeyCleaner
	)
	if rdb, err := cache.Connect(ctx, cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, using Postgres for idempotency", "error", err)
		pgKeys := postgres.NewIdempotencyRepo(pool)
		idempotency = pgKeys
		keyCleaner = pgKeys
	} else {
		defer rdb.Close()
		limiter = cache.NewRateLimiter(rdb, cfg.Auth.RateLimitRequests, cfg.Auth.RateLimitWindow)
		idempotency = cache.NewIdempotencyStore(rdb)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			return err
		}
		publisher = bus
	}
	defer publisher.Close()

	mail, err := mailer.New(cfg.Email)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(mail, publisher, cfg.Notify)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.AccessTokenTTL)
	params := argon2id.DefaultParams

	bookings := service.NewBookingService(store, dispatcher, cfg.Booking, nil)
	condos := service.NewCondoService(store, publisher, cfg.Booking, params, nil)
	queries := service.NewQueryService(store, nil)
	accounts := service.NewAuthService(store, issuer, params, nil)

	jobs, err := scheduler.New(bookings, keyCleaner, scheduler.Config{
		SweepInterval: cfg.Booking.PendingSweepInterval,
	})
	if err != nil {
		return err
	}

	proxies, err := middleware.NewProxyTrust(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	h := handlers.New(bookings, condos, queries, accounts)
	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: h.Router(handlers.RouterConfig{
			Tokens:         issuer,
			Limiter:        limiter,
			Proxies:        proxies,
			Idempotency:    idempotency,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("Starting condo bookings service", "port", cfg.Server.Port)
	return serve(ctx, srv, dispatcher, jobs, cfg.Server.ShutdownTimeout)
}

type runner interface {
	Run(ctx context.Context) error
}

type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// serve runs the HTTP server and the background workers until ctx is done.
// The server drains first; notification workers keep their own context and
// stop only after it, so jobs enqueued by the last requests are delivered.
func serve(ctx context.Context, srv server, dispatcher, jobs runner, shutdownTimeout time.Duration) error {
	workCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(workCtx) })
	g.Go(func() error { return jobs.Run(gctx) })
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopWorkers()
		logger.Info("Shutting down condo bookings service...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}
