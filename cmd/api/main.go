// Package main is the entry point for the portfolio API server.
//
// It loads configuration, connects the Postgres pool, wires the billing
// service (catalog, signature verifier, payment provider client, expiry
// sweeper) into the core chassis, and serves HTTP with graceful shutdown
// on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"craftfolio/internal/api/handlers"
	"craftfolio/internal/auth"
	"craftfolio/internal/billing"
	"craftfolio/internal/config"
	"craftfolio/internal/core"
	"craftfolio/internal/db"
	"craftfolio/internal/external"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	pool, err := newPool(cfg)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}

	userRepo := db.NewUserRepository(pool, logger)
	paymentRepo := db.NewPaymentRepository(pool, logger)

	catalog := billing.NewStaticCatalog()
	verifier := external.NewHMACVerifier(cfg.Payment.KeySecret)
	orderClient := external.NewRazorpayClient(
		&http.Client{Timeout: cfg.Payment.Timeout},
		external.RazorpayClientConfig{
			KeyID:     cfg.Payment.KeyID,
			KeySecret: cfg.Payment.KeySecret,
			BaseURL:   cfg.Payment.BaseURL,
			Logger:    logger,
		},
	)

	paymentService := billing.NewService(billing.ServiceConfig{
		Users:    userRepo,
		Ledger:   paymentRepo,
		Catalog:  catalog,
		Verifier: verifier,
		Orders:   orderClient,
		Currency: cfg.Payment.Currency,
		Logger:   logger,
	})

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Authenticator = auth.NewJWTAuthenticator(cfg.Auth.JWTSecret)
	srv.Sweeper = billing.NewSweeper(userRepo, catalog, logger)
	srv.HealthProbes = []core.HealthProbe{databaseProbe{pool: pool}}
	srv.Closers = append(srv.Closers, pool)

	paymentHandler := handlers.NewPaymentHandler(paymentService, srv.Validator, logger)
	billingHandler := handlers.NewBillingHandler(catalog, userRepo, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { paymentHandler.RegisterRoutes(r) },
		func(r chi.Router) { billingHandler.RegisterRoutes(r) },
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// newPool builds the pgx connection pool from configuration.
func newPool(cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.AcquireTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// databaseProbe reports database reachability for the health endpoint.
type databaseProbe struct {
	pool *pgxpool.Pool
}

func (p databaseProbe) Name() string                    { return "database" }
func (p databaseProbe) Check(ctx context.Context) error { return p.pool.Ping(ctx) }

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
