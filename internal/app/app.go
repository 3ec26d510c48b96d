// Package app holds the bootstrap steps shared by the relayq binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourorg/relayq/internal/config"
	"github.com/yourorg/relayq/internal/queue"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

// ConnectRedis parses url, dials, and pings.
func ConnectRedis(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rc := redis.NewClient(opts)

	logger.Info("connecting to redis", "addr", opts.Addr, "db", opts.DB)
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis connected")
	return rc, nil
}

// Queue opens the configured queue.
func Queue(rc *redis.Client, cfg *config.Config) *queue.Queue {
	return queue.New(rc, cfg.Queue.Prefix, cfg.Queue.Name, queue.Options{
		DefaultLock: cfg.Queue.DefaultLock,
		SweepBatch:  cfg.Queue.SweepBatch,
	})
}

// ServeHTTP runs srv until ctx is canceled, then shuts it down.
func ServeHTTP(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http serve: %w", err)
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// ServeGRPC listens on addr and serves gs until ctx is canceled.
func ServeGRPC(ctx context.Context, gs *grpc.Server, addr string, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", "addr", lis.Addr().String())
		errc <- gs.Serve(lis)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("gRPC serve: %w", err)
	case <-ctx.Done():
	}
	gs.GracefulStop()
	logger.Info("gRPC server stopped")
	return nil
}
