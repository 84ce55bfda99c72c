package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/parleychat/sharegate/pkg/config"
	"github.com/parleychat/sharegate/pkg/httputil"
	"github.com/parleychat/sharegate/pkg/identity"
	"github.com/parleychat/sharegate/pkg/login"
	"github.com/parleychat/sharegate/pkg/observability"
	"github.com/parleychat/sharegate/pkg/share"
	"github.com/parleychat/sharegate/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sharegate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.ParseLevel(cfg.Observability.LogLevel), os.Stdout)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	logger.WithField("type", cfg.Storage.Type).Info("storage initialized")

	provider, err := identity.NewClient(cfg.Provider)
	if err != nil {
		return fmt.Errorf("initialize identity provider: %w", err)
	}

	secret := []byte(cfg.TokenSecret)
	health := observability.NewHealthChecker(store)

	router := mux.NewRouter()
	router.Use(httputil.Recovery(logger))
	router.Use(httputil.RequestLogging(logger))
	if cfg.Observability.MetricsEnabled {
		router.Use(httputil.MetricsMiddleware(metrics))
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	router.HandleFunc("/healthz", health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", health.Readiness).Methods(http.MethodGet)

	login.NewHandler(provider, secret, metrics).RegisterRoutes(router)
	share.NewHandler(store, secret, metrics).RegisterRoutes(router)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func newStore(ctx context.Context, cfg storage.Config) (storage.ObjectStore, error) {
	switch cfg.Type {
	case "s3":
		return storage.NewS3Store(ctx, cfg)
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
