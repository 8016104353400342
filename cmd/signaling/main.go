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

	"github.com/joho/godotenv"

	"github.com/mossy-p/room-signaling/config"
	"github.com/mossy-p/room-signaling/internal/handlers"
	"github.com/mossy-p/room-signaling/internal/logging"
	"github.com/mossy-p/room-signaling/internal/metrics"
	"github.com/mossy-p/room-signaling/internal/presence"
	"github.com/mossy-p/room-signaling/internal/redis"
	"github.com/mossy-p/room-signaling/internal/tunnel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := config.Load()
	cfg.ApplyArgs(os.Args[1:])
	logger := logging.New(cfg.Environment, cfg.LogLevel)

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	clients := handlers.NewClients(m, logger)
	opts := []presence.Option{presence.WithObserver(m)}

	// Optional Redis presence mirror
	mirrorDone := make(chan struct{})
	close(mirrorDone)
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()

		store := redis.NewStore(rdb, cfg.Redis.PresenceTTL)
		if err := store.Reset(ctx); err != nil {
			logger.Warn("could not clear stale presence", "err", err)
		}
		mirror := redis.NewMirror(store, logger)
		opts = append(opts, presence.WithObserver(mirror))

		mirrorDone = make(chan struct{})
		go func() {
			defer close(mirrorDone)
			mirror.Run(ctx)
		}()
		logger.Info("redis presence mirror enabled", "addr", cfg.Redis.Host+":"+cfg.Redis.Port)
	}

	hub := presence.NewHub(clients, logger, opts...)
	signaling := handlers.NewSignaling(hub, clients, m, cfg.WebSocket, logger)

	deps := handlers.RouterDeps{
		Config:    cfg,
		Logger:    logger,
		Hub:       hub,
		Signaling: signaling,
		Metrics:   m,
	}

	// Optional public tunnel; failures only cost the public URL
	if cfg.Tunnel.Enabled {
		tun := tunnel.NewBootstrapper(cfg.Tunnel, cfg.Port, logger)
		defer tun.Stop()
		if url := tun.Start(ctx); url != "" {
			logger.Info("use this URL in your client", "public_url", url)
		}
		deps.Tunnel = tun
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting signaling server", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}

	stop()
	<-mirrorDone
	logger.Info("shutdown complete")
	return nil
}
