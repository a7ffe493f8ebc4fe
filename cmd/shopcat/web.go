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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopcat/internal/bestbuy"
	"shopcat/internal/catalog"
	"shopcat/internal/config"
)

func runServer(cfg *config.Config, addr string) error {
	client, err := bestbuy.NewClient(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := &http.Server{
		Addr:              addr,
		Handler:           WithMiddleware(newMux(client, registry), cfg.RateLimit, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Serving shopcat", "address", addr, "upstream", cfg.Catalog.BaseURL)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-shutdown:
		slog.Info("Shutdown signal received", "signal", sig)
		return gracefulShutdown(server)
	}
}

func newMux(client *bestbuy.Client, registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	catalog.NewHandler(catalog.NewResolver(client), catalog.NewAggregator(client)).Register(mux)

	ro := &readyOnce{}
	ro.Add(client)
	mux.Handle("GET /ready", ro)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

func gracefulShutdown(svr *http.Server) error {
	// in-flight requests are bounded by the catalog timeout; kubernetes allows 30s
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := svr.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
		if closeErr := svr.Close(); closeErr != nil {
			slog.Error("Server close error", "error", closeErr)
		}
		return err
	}
	slog.Info("Server stopped")
	return nil
}
