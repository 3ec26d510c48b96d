// Package config holds the process configuration shared by the relayq
// binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Queue     QueueConfig     `yaml:"queue"`
	Worker    WorkerConfig    `yaml:"worker"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	GRPC      GRPCConfig      `yaml:"grpc"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// DatabaseConfig enables the execution history. Empty URL disables it.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type QueueConfig struct {
	Prefix      string        `yaml:"prefix"`
	Name        string        `yaml:"name"`
	DefaultLock time.Duration `yaml:"default_lock"`
	SweepBatch  int           `yaml:"sweep_batch"`
}

type WorkerConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

type SchedulerConfig struct {
	Idle    time.Duration `yaml:"idle"`
	Backoff time.Duration `yaml:"backoff"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// GRPCConfig controls the health service. Empty Addr disables it.
type GRPCConfig struct {
	Addr          string        `yaml:"addr"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

// Default returns the canonical defaults.
func Default() *Config {
	return &Config{
		Redis: RedisConfig{URL: "redis://localhost:6379"},
		Queue: QueueConfig{
			Prefix:      "yq",
			Name:        "default",
			DefaultLock: 60 * time.Minute,
			SweepBatch:  100,
		},
		Worker: WorkerConfig{
			Concurrency:  1,
			DrainTimeout: 25 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Idle:    10 * time.Second,
			Backoff: 60 * time.Second,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Addr: ":9090"},
		GRPC:    GRPCConfig{Addr: ":50051", CheckInterval: 5 * time.Second},
	}
}

// Load overlays the YAML file at path on Default, then applies environment
// overrides. An empty path or a missing file yields the defaults.
//
//	REDIS_URL            redis.url
//	DATABASE_URL         database.url
//	RELAYQ_PREFIX        queue.prefix
//	RELAYQ_QUEUE         queue.name
//	RELAYQ_CONCURRENCY   worker.concurrency
//	RELAYQ_LOG_LEVEL     log.level
//	RELAYQ_LOG_FORMAT    log.format
//	RELAYQ_METRICS_ADDR  metrics.addr
//	RELAYQ_GRPC_ADDR     grpc.addr
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"REDIS_URL":           &cfg.Redis.URL,
		"DATABASE_URL":        &cfg.Database.URL,
		"RELAYQ_PREFIX":       &cfg.Queue.Prefix,
		"RELAYQ_QUEUE":        &cfg.Queue.Name,
		"RELAYQ_LOG_LEVEL":    &cfg.Log.Level,
		"RELAYQ_LOG_FORMAT":   &cfg.Log.Format,
		"RELAYQ_METRICS_ADDR": &cfg.Metrics.Addr,
		"RELAYQ_GRPC_ADDR":    &cfg.GRPC.Addr,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v := os.Getenv("RELAYQ_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RELAYQ_CONCURRENCY: %w", err)
		}
		cfg.Worker.Concurrency = n
	}
	return nil
}

// Validate returns the first inconsistency found.
func (c *Config) Validate() error {
	if c.Redis.URL == "" {
		return errors.New("redis.url must not be empty")
	}
	if c.Queue.Prefix == "" {
		return errors.New("queue.prefix must not be empty")
	}
	if c.Queue.Name == "" {
		return errors.New("queue.name must not be empty")
	}
	if c.Queue.DefaultLock <= 0 {
		return errors.New("queue.default_lock must be positive")
	}
	if c.Queue.SweepBatch < 1 {
		return errors.New("queue.sweep_batch must be at least 1")
	}
	if c.Worker.Concurrency < 1 {
		return errors.New("worker.concurrency must be at least 1")
	}
	if c.Scheduler.Idle <= 0 || c.Scheduler.Backoff <= 0 {
		return errors.New("scheduler.idle and scheduler.backoff must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf(`log.format must be "json" or "text", got %q`, c.Log.Format)
	}
	return nil
}
