package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/watcherai/glassbox-gateway/internal/api"
	"github.com/watcherai/glassbox-gateway/internal/cache"
	"github.com/watcherai/glassbox-gateway/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC gateway and the metrics endpoint",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("starting glassbox-gateway",
		slog.String("address", cfg.Server.Address),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.Bool("persistsResults", cfg.Backend.PersistsResults),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	service, err := newAnalysisService()
	if err != nil {
		return err
	}
	sessions := cache.NewSessions(cfg.Cache.SessionIdleTimeout,
		cache.WithLogger(logger),
		cache.WithActiveGauge(metrics.SetActiveSessions),
	)
	defer sessions.Close()

	server, err := api.NewServer(cfg.Server, api.NewHandler(logger, service, sessions))
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gRPC server listening", slog.String("address", server.Address()))
		if err := server.Start(); err != nil {
			return fmt.Errorf("gRPC server exited: %w", err)
		}
		return nil
	})

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server exited: %w", err)
			}
			return nil
		})
	}

	if cfg.Cache.SessionIdleTimeout > 0 && cfg.Cache.SweepInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Cache.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case now := <-ticker.C:
					sessions.Sweep(now)
				}
			}
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server shutdown", slog.Any("error", err))
			}
		}
		return nil
	})

	err = g.Wait()
	logger.Info("glassbox-gateway stopped", slog.Duration("p95", service.LatencyP95()))
	return err
}
