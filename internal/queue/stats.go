package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/yourorg/relayq/internal/keyspace"
)

// Stats is a point-in-time count of every structure of a queue. The counts
// are read in one pipeline but are not a consistent snapshot.
type Stats struct {
	Queue     string
	Ready     int64
	Circle    int64
	Locked    int64
	Done      int64
	Failed    int64
	Scheduled int64
	DryRuns   int64
	LastMID   int64
}

// Stats reads the queue counters.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	k := q.Keys
	var (
		ready, circle, locked, done, failed, scheduled *redis.IntCmd
		ndry, seq                                      *redis.StringCmd
	)
	_, err := q.rc.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		ready = pipe.LLen(ctx, k.MidsReady)
		circle = pipe.LLen(ctx, k.MidCircle)
		locked = pipe.HLen(ctx, k.Locks)
		done = pipe.SCard(ctx, k.Done)
		failed = pipe.HLen(ctx, k.Err)
		scheduled = pipe.ZCard(ctx, k.Schedule)
		ndry = pipe.Get(ctx, k.NDryRuns)
		seq = pipe.Get(ctx, k.MidSeq)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}

	return Stats{
		Queue:     q.Name,
		Ready:     ready.Val(),
		Circle:    circle.Val(),
		Locked:    locked.Val(),
		Done:      done.Val(),
		Failed:    failed.Val(),
		Scheduled: scheduled.Val(),
		DryRuns:   counterVal(ndry),
		LastMID:   counterVal(seq),
	}, nil
}

func counterVal(cmd *redis.StringCmd) int64 {
	n, err := cmd.Int64()
	if err != nil {
		return 0
	}
	return n
}

// Failure is one entry of the failure bookkeeping.
type Failure struct {
	MID     int64
	Error   string
	Content string
}

// Failures lists recorded job failures ordered by mid.
func (q *Queue) Failures(ctx context.Context) ([]Failure, error) {
	errs, err := q.rc.HGetAll(ctx, q.Keys.Err).Result()
	if err != nil {
		return nil, fmt.Errorf("read failures: %w", err)
	}
	contents, err := q.rc.HGetAll(ctx, q.Keys.ErrMessages).Result()
	if err != nil {
		return nil, fmt.Errorf("read failed messages: %w", err)
	}

	out := make([]Failure, 0, len(errs))
	for field, msg := range errs {
		mid, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Failure{MID: mid, Error: msg, Content: contents[field]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MID < out[j].MID })
	return out, nil
}

// KeyDump is the raw content of one Redis key.
type KeyDump struct {
	Key    string
	Type   string
	Values []string
}

// Dump reads every key under prefix, for debugging. List order is
// preserved; hash entries render as "field=value", zset entries as
// "member=score".
func Dump(ctx context.Context, rc *redis.Client, prefix string) ([]KeyDump, error) {
	var keys []string
	iter := rc.Scan(ctx, 0, keyspace.Pattern(prefix), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	sort.Strings(keys)

	out := make([]KeyDump, 0, len(keys))
	for _, key := range keys {
		d, err := dumpKey(ctx, rc, key)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func dumpKey(ctx context.Context, rc *redis.Client, key string) (KeyDump, error) {
	typ, err := rc.Type(ctx, key).Result()
	if err != nil {
		return KeyDump{}, fmt.Errorf("type %s: %w", key, err)
	}
	d := KeyDump{Key: key, Type: typ}

	switch typ {
	case "string":
		v, err := rc.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return d, fmt.Errorf("get %s: %w", key, err)
		}
		d.Values = []string{v}
	case "list":
		d.Values, err = rc.LRange(ctx, key, 0, -1).Result()
	case "set":
		d.Values, err = rc.SMembers(ctx, key).Result()
		sort.Strings(d.Values)
	case "hash":
		var m map[string]string
		m, err = rc.HGetAll(ctx, key).Result()
		for f, v := range m {
			d.Values = append(d.Values, f+"="+v)
		}
		sort.Strings(d.Values)
	case "zset":
		var zs []redis.Z
		zs, err = rc.ZRangeWithScores(ctx, key, 0, -1).Result()
		for _, z := range zs {
			d.Values = append(d.Values, fmt.Sprintf("%v=%d", z.Member, int64(z.Score)))
		}
	}
	if err != nil {
		return d, fmt.Errorf("read %s: %w", key, err)
	}
	return d, nil
}
