// cmd/scheduler promotes due delayed jobs into the default queue. Run one
// or more; promotion is atomic so extra instances only add polling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourorg/relayq/internal/app"
	"github.com/yourorg/relayq/internal/config"
	"github.com/yourorg/relayq/internal/grpcserver"
	"github.com/yourorg/relayq/internal/logging"
	"github.com/yourorg/relayq/internal/metrics"
	"github.com/yourorg/relayq/internal/queue"
	"github.com/yourorg/relayq/internal/scheduler"
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

	// Delayed jobs always land in the default queue.
	cfg.Queue.Name = queue.DefaultQueueName
	q := app.Queue(rc, cfg)

	m := metrics.New()
	m.WatchQueues(q)

	s, err := scheduler.New(q, logger, scheduler.Options{
		Idle:      cfg.Scheduler.Idle,
		Backoff:   cfg.Scheduler.Backoff,
		OnPromote: m.Promoted,
	})
	if err != nil {
		logger.Error("create scheduler failed", "err", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Run(gctx)
		return nil
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

	if err := g.Wait(); err != nil {
		logger.Error("scheduler exited", "err", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
