package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourorg/relayq/internal/envelope"
	"github.com/yourorg/relayq/internal/queue"
	"github.com/yourorg/relayq/internal/ratelimit"
)

func jobContent(cmd *cobra.Command) (string, error) {
	jobType, _ := cmd.Flags().GetString("type")
	body, _ := cmd.Flags().GetString("body")
	if jobType == "" {
		return "", errors.New("--type is required")
	}
	if !json.Valid([]byte(body)) {
		return "", fmt.Errorf("--body is not valid JSON: %q", body)
	}
	return envelope.Wrap(jobType, []byte(body)), nil
}

func addJobFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "job type (required)")
	cmd.Flags().String("body", "{}", "JSON job body")
}

func newEnqueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Submit jobs for immediate execution",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := jobContent(cmd)
			if err != nil {
				return err
			}
			lock, _ := cmd.Flags().GetDuration("lock")
			count, _ := cmd.Flags().GetInt("count")
			perSecond, _ := cmd.Flags().GetFloat64("rate")
			burst, _ := cmd.Flags().GetInt("burst")

			ctx := cmd.Context()
			q, _, closeFn, err := openQueue(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			p := ratelimit.NewProducer(perSecond, burst)
			n, err := p.Run(ctx, count, func(ctx context.Context, _ int) error {
				res, err := q.Enqueue(ctx, content, queue.EnqueueOptions{LockTTL: lock})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "enqueued mid=%d woke=%s\n", res.MID, res.Woke)
				return nil
			})
			if count > 1 {
				fmt.Fprintf(out, "%d/%d jobs enqueued on %s:%s\n", n, count, q.Prefix, q.Name)
			}
			return err
		},
	}
	addJobFlags(cmd)
	cmd.Flags().Duration("lock", 0, "lock duration override (default: queue default)")
	cmd.Flags().Int("count", 1, "number of copies to submit")
	cmd.Flags().Float64("rate", 0, "maximum submissions per second (0 = unlimited)")
	cmd.Flags().Int("burst", 1, "token bucket burst for --rate")
	return cmd
}

func newEnqueueAtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue-at",
		Short: "Schedule a job on the default queue for later",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := jobContent(cmd)
			if err != nil {
				return err
			}
			at, _ := cmd.Flags().GetString("at")
			delay, _ := cmd.Flags().GetDuration("delay")

			var runAt time.Time
			switch {
			case at != "" && delay != 0:
				return errors.New("use only one of --at and --delay")
			case at != "":
				runAt, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at %q: %w", at, err)
				}
			case delay > 0:
				runAt = time.Now().Add(delay)
			default:
				return errors.New("one of --at or --delay is required")
			}

			q, _, closeFn, err := openQueue(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			mid, err := q.EnqueueAt(cmd.Context(), content, runAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scheduled mid=%d run_at=%s\n", mid, runAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	addJobFlags(cmd)
	cmd.Flags().String("at", "", "run time, RFC3339")
	cmd.Flags().Duration("delay", 0, "run after this delay (e.g. 10s, 1m)")
	return cmd
}
