package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/relayq/internal/registry"
)

type sleepJob struct {
	Ms int `json:"ms"`
}

type failJob struct {
	Message string `json:"message"`
}

// registerHandlers installs the built-in job types.
func registerHandlers(reg *registry.Registry, logger *slog.Logger) error {
	handlers := map[string]registry.Handler{
		// noop completes immediately. Used for throughput benchmarks.
		"noop": func(context.Context, int64, []byte) error { return nil },

		"echo": func(_ context.Context, mid int64, body []byte) error {
			logger.Info("echo", "mid", mid, "body", string(body))
			return nil
		},

		// sleep holds the job for ms milliseconds, respecting cancellation.
		"sleep": func(ctx context.Context, _ int64, body []byte) error {
			var job sleepJob
			if err := json.Unmarshal(body, &job); err != nil {
				return fmt.Errorf("decode sleep job: %w", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(job.Ms) * time.Millisecond):
				return nil
			}
		},

		"fail": func(_ context.Context, _ int64, body []byte) error {
			var job failJob
			_ = json.Unmarshal(body, &job)
			if job.Message == "" {
				job.Message = "simulated failure"
			}
			return fmt.Errorf("%s", job.Message)
		},
	}

	for name, h := range handlers {
		if err := reg.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}
