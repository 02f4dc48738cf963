package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/roomhive/roomhive/internal/app"
	"github.com/roomhive/roomhive/internal/authz"
	"github.com/roomhive/roomhive/internal/bookings"
	"github.com/roomhive/roomhive/internal/integration"
	"github.com/roomhive/roomhive/internal/observability"
	"github.com/roomhive/roomhive/internal/platform/cache"
	"github.com/roomhive/roomhive/internal/platform/db"
	"github.com/roomhive/roomhive/internal/reviews"
	"github.com/roomhive/roomhive/internal/rooms"
	"github.com/roomhive/roomhive/internal/shared"
	"github.com/roomhive/roomhive/internal/users"
	"github.com/roomhive/roomhive/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	roomLocker := shared.NewRoomLocker(redisClient, 0)

	usersClient := integration.NewUsersClient(cfg.UsersServiceURL)
	notifier := jobs.NewBookingNotifier(asynqClient, usersClient, logger)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersGuard := authz.Guard{Resolver: usersRepo, Logger: logger}
	usersHandler := users.NewHandler(logger, usersService, usersGuard)

	roomsRepo := rooms.NewRepository(dbpool)
	roomsService := rooms.NewService(roomsRepo)
	roomsGuard := authz.Guard{Logger: logger}
	roomsHandler := rooms.NewHandler(logger, roomsService, roomsGuard)

	bookingsRepo := bookings.NewRepository(dbpool)
	bookingsService := bookings.NewService(bookingsRepo, roomLocker, notifier, logger)
	bookingsGuard := authz.Guard{Resolver: bookingsRepo, Logger: logger}
	bookingsHandler := bookings.NewHandler(logger, bookingsService, bookingsGuard, idempotencyStore, cfg.MFACancelCode)

	reviewsRepo := reviews.NewRepository(dbpool)
	reviewsService := reviews.NewService(reviewsRepo)
	reviewsGuard := authz.Guard{Resolver: reviewsRepo, Logger: logger}
	reviewsHandler := reviews.NewHandler(logger, reviewsService, reviewsGuard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		UsersHandler:    usersHandler,
		RoomsHandler:    roomsHandler,
		BookingsHandler: bookingsHandler,
		ReviewsHandler:  reviewsHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := idempotencyStore.Cleanup(gctx, 24*time.Hour); err != nil {
					logger.Warn("idempotency cleanup", slog.Any("error", err))
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
