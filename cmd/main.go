package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/auth"
	"github.com/ukydev/fleet-backoffice/internal/config"
	"github.com/ukydev/fleet-backoffice/internal/db"
	"github.com/ukydev/fleet-backoffice/internal/db/sqlite"
	"github.com/ukydev/fleet-backoffice/internal/handlers"
	"github.com/ukydev/fleet-backoffice/internal/ledger"
	"github.com/ukydev/fleet-backoffice/internal/logging"
	"github.com/ukydev/fleet-backoffice/internal/middleware"
	"github.com/ukydev/fleet-backoffice/internal/notifications"
)

const shutdownTimeout = 10 * time.Second

// app is the wired server and its background workers.
type app struct {
	server    *http.Server
	scheduler *notifications.Scheduler
	publisher notifications.Publisher
	limiter   *middleware.RateLimitMiddleware
	log       *log.Logger
}

func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	case config.DriverMongo:
		return db.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newApp(cfg *config.Config, store db.Store, logger *log.Logger) (*app, error) {
	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}

	publisher := notifications.NewPublisher(cfg.MQTT, logger)
	evaluator := notifications.NewEvaluator(store, publisher, logger)
	limiter := middleware.NewRateLimitMiddleware(cfg.RateLimit, cfg.RateWindow)

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           handlers.NewAuthHandler(authService, store.Users(), logger),
		Fuel:           handlers.NewFuelHandler(ledger.NewService(store, logger), store.FuelCards(), logger),
		Fleet:          handlers.NewFleetHandler(store, logger),
		Notifications:  handlers.NewNotificationHandler(store.Notifications(), evaluator, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		RateLimiter:    limiter,
		CORSOrigins:    cfg.CORSOrigins,
		Logger:         logger,
	})

	return &app{
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		scheduler: notifications.NewScheduler(evaluator, cfg.NotifyInterval, logger),
		publisher: publisher,
		limiter:   limiter,
		log:       logger,
	}, nil
}

// run serves until ctx is cancelled or the listener fails, then shuts down.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.scheduler.Start()
	defer a.scheduler.Stop()
	defer a.publisher.Close()

	sweepDone := make(chan struct{})
	go a.sweep(ctx, sweepDone)

	serveErr := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.server.Addr).Info("HTTP server listening")
		serveErr <- a.server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		cancel()
		<-sweepDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	err := a.server.Shutdown(shutdownCtx)
	<-sweepDone
	return err
}

// sweep drops idle rate limit entries until ctx is done.
func (a *app) sweep(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.limiter.Sweep()
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("Failed to open store")
	}
	logger.WithField("driver", cfg.StoreDriver).Info("Store opened")

	a, err := newApp(cfg, store, logger)
	if err != nil {
		store.Close(context.Background())
		logger.WithError(err).Fatal("Failed to build server")
	}

	runErr := a.run(ctx)
	if err := store.Close(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to close store")
	}
	if runErr != nil {
		logger.WithError(runErr).Fatal("Server stopped with error")
	}
	logger.Info("Server stopped")
}
