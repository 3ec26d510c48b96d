package queue

import (
	"context"
	"fmt"
	"time"
)

// PromoteDue moves every scheduled job with run_at <= now into the ready
// path of this queue and returns how many moved. Zero means no job was due.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int64, error) {
	k := q.Keys
	keys := []string{k.MidsReady, k.MidCircle, k.Schedule, k.SleepOn, k.ISleepA, k.ISleepB}

	vals, err := promoteDueScript.Run(ctx, q.rc, keys, now.UnixMilli()).Slice()
	if err != nil {
		return 0, fmt.Errorf("promote due: %w", err)
	}

	action, _ := replyString(vals, 0)
	switch action {
	case "no-job":
		return 0, nil
	case "dequeued":
		if n, ok := replyInt(vals, 1); ok {
			return n, nil
		}
	}
	return 0, unknown("promote due", vals)
}
