// cmd/worker runs a pool of dequeue loops against one queue, plus the
// health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourorg/relayq/internal/app"
	"github.com/yourorg/relayq/internal/config"
	"github.com/yourorg/relayq/internal/grpcserver"
	"github.com/yourorg/relayq/internal/history"
	"github.com/yourorg/relayq/internal/logging"
	"github.com/yourorg/relayq/internal/metrics"
	"github.com/yourorg/relayq/internal/migrate"
	"github.com/yourorg/relayq/internal/registry"
	"github.com/yourorg/relayq/internal/worker"
	"golang.org/x/sync/errgroup"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	cfg, err := config.Load(getenv("RELAYQ_CONFIG", "relayq.yaml"))
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	rc, err := app.ConnectRedis(ctx, cfg.Redis.URL, logger)
	if err != nil {
		logger.Error("connect to redis failed", "err", err)
		os.Exit(1)
	}
	defer rc.Close()

	q := app.Queue(rc, cfg)
	m := metrics.New()
	m.WatchQueues(q)

	reg := registry.New()
	if err := registerHandlers(reg, logger); err != nil {
		logger.Error("register handlers failed", "err", err)
		os.Exit(1)
	}

	hostname, _ := os.Hostname()
	opts := worker.Options{
		Hostname: hostname,
		Queue:    q,
		Registry: reg,
		Logger:   logger,
		Observer: m,
	}

	if cfg.Database.URL != "" {
		pool, err := connectHistory(ctx, cfg.Database.URL, logger)
		if err != nil {
			logger.Error("connect to database failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		opts.Recorder = history.NewStore(pool)
	}

	logger.Info("worker ready",
		"hostname", hostname,
		"prefix", q.Prefix,
		"queue", q.Name,
		"concurrency", cfg.Worker.Concurrency,
		"handlers", reg.Names())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.RunPool(gctx, cfg.Worker.Concurrency, opts)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return app.ServeHTTP(gctx, m.Server(cfg.Metrics.Addr), logger) })
	}
	if cfg.GRPC.Addr != "" {
		hs := grpcserver.New(rc, logger, cfg.GRPC.CheckInterval)
		g.Go(func() error {
			hs.RunChecks(gctx)
			return nil
		})
		g.Go(func() error { return app.ServeGRPC(gctx, grpcserver.NewGRPCServer(hs), cfg.GRPC.Addr, logger) })
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("worker exited", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining")
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("shutdown with error", "err", err)
			}
		case <-time.After(cfg.Worker.DrainTimeout):
			logger.Warn("shutdown drain timeout; in-flight jobs will be redelivered after their locks expire")
		}
	}

	logger.Info("shutdown complete")
}

func connectHistory(ctx context.Context, url string, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database")
	pool, err := history.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := migrate.Run(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("database connected; execution history enabled")
	return pool, nil
}
