// cmd/relayq is the operator CLI: submit jobs and inspect queue state.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/yourorg/relayq/internal/config"
	"github.com/yourorg/relayq/internal/queue"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relayq",
		Short:         "relayq job queue CLI",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", os.Getenv("RELAYQ_CONFIG"), "YAML config file")
	root.PersistentFlags().String("redis", "", "Redis URL (overrides config and REDIS_URL)")
	root.PersistentFlags().String("prefix", "", "key prefix (overrides config)")
	root.PersistentFlags().String("queue", "", "queue name (overrides config)")

	root.AddCommand(
		newEnqueueCmd(),
		newEnqueueAtCmd(),
		newStatsCmd(),
		newFailuresCmd(),
		newDumpCmd(),
		newHistoryCmd(),
		newHealthCmd(),
	)
	return root
}

// loadConfig reads the config file and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("redis"); v != "" {
		cfg.Redis.URL = v
	}
	if v, _ := cmd.Flags().GetString("prefix"); v != "" {
		cfg.Queue.Prefix = v
	}
	if v, _ := cmd.Flags().GetString("queue"); v != "" {
		cfg.Queue.Name = v
	}
	return cfg, cfg.Validate()
}

// openQueue connects to Redis without the startup logging the servers do.
func openQueue(ctx context.Context, cmd *cobra.Command) (*queue.Queue, *config.Config, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	q := queue.New(rc, cfg.Queue.Prefix, cfg.Queue.Name, queue.Options{
		DefaultLock: cfg.Queue.DefaultLock,
		SweepBatch:  cfg.Queue.SweepBatch,
	})
	return q, cfg, func() { rc.Close() }, nil
}
