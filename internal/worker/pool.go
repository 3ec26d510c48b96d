package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RunPool runs n workers built from opts until ctx is canceled. Each worker
// gets its own ID.
func RunPool(ctx context.Context, n int, opts Options) error {
	if n <= 0 {
		return fmt.Errorf("worker pool size must be positive, got %d", n)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		o := opts
		o.ID = uuid.New()
		w := New(o)
		g.Go(func() error {
			w.Start(ctx)
			return nil
		})
	}
	return g.Wait()
}
