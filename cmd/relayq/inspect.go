package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourorg/relayq/internal/domain"
	"github.com/yourorg/relayq/internal/history"
	"github.com/yourorg/relayq/internal/queue"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, _, closeFn, err := openQueue(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := q.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "queue:      %s:%s\n", q.Prefix, s.Queue)
			fmt.Fprintf(out, "ready:      %d\n", s.Ready)
			fmt.Fprintf(out, "circle:     %d\n", s.Circle)
			fmt.Fprintf(out, "locked:     %d\n", s.Locked)
			fmt.Fprintf(out, "done:       %d\n", s.Done)
			fmt.Fprintf(out, "failed:     %d\n", s.Failed)
			fmt.Fprintf(out, "scheduled:  %d\n", s.Scheduled)
			fmt.Fprintf(out, "dry_runs:   %d\n", s.DryRuns)
			fmt.Fprintf(out, "last_mid:   %d\n", s.LastMID)
			return nil
		},
	}
}

func newFailuresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List failed jobs with their errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			showContent, _ := cmd.Flags().GetBool("content")

			q, _, closeFn, err := openQueue(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			failures, err := q.Failures(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(failures) == 0 {
				fmt.Fprintln(out, "no failures")
				return nil
			}
			for _, f := range failures {
				fmt.Fprintf(out, "%d\t%s\n", f.MID, f.Error)
				if showContent {
					fmt.Fprintf(out, "\t%s\n", f.Content)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("content", false, "also print the job content")
	return cmd
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every key under the prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, _, closeFn, err := openQueue(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			dumps, err := queue.Dump(cmd.Context(), q.Client(), q.Prefix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range dumps {
				fmt.Fprintf(out, "%s (%s): [%s]\n", d.Key, d.Type, strings.Join(d.Values, ", "))
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded executions from PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			mid, _ := cmd.Flags().GetInt64("mid")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL (or database.url) is required")
			}

			ctx := cmd.Context()
			pool, err := history.Connect(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := history.NewStore(pool)
			var execs []domain.Execution
			if mid > 0 {
				execs, err = store.ForMID(ctx, cfg.Queue.Name, mid)
			} else {
				execs, err = store.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(execs) == 0 {
				fmt.Fprintln(out, "no executions recorded")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-10s  %-8s  %-12s  %-10s  %s\n",
				"EXEC_ID", "QUEUE", "MID", "JOB_TYPE", "OUTCOME", "STARTED")
			for _, e := range execs {
				fmt.Fprintf(out, "%-36s  %-10s  %-8d  %-12s  %-10s  %s\n",
					e.ID, e.Queue, e.MID, e.JobType, e.Outcome, e.StartedAt.Format(time.RFC3339))
				if e.Error != "" {
					fmt.Fprintf(out, "    error: %s\n", e.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64("mid", 0, "only executions of this mid on --queue")
	cmd.Flags().Int("limit", 20, "number of recent executions")
	return cmd
}
