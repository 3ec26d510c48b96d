// Package keyspace names every Redis structure a queue touches.
package keyspace

import "fmt"

// Keys holds the precomputed Redis keys for one (prefix, queue) pair.
type Keys struct {
	MidSeq      string // string counter: last assigned mid
	Messages    string // hash: mid -> content
	LockTimes   string // hash: mid -> lock override (ms)
	Locks       string // hash: mid -> lock expiry (unix ms)
	Done        string // set: finished mids
	Err         string // hash: mid -> error string
	ErrMessages string // hash: mid -> content of a failed job
	MidsReady   string // list: fresh mids (push left, pop right)
	MidCircle   string // list: every unfinished mid, rotated (push left, pop right)
	NDryRuns    string // string counter: consecutive empty dequeues
	ISleepA     string // list: wake relay channel a
	ISleepB     string // list: wake relay channel b
	SleepOn     string // string: channel the latest dry run handed out
	SweepPos    string // string counter: circle entries rotated in the current lap
	Schedule    string // zset: mid scored by run_at (unix ms), shared per prefix
}

// For returns the keys for queue under prefix.
func For(prefix, queue string) Keys {
	return Keys{
		MidSeq:      queueKey(prefix, queue, "mid-seq"),
		Messages:    queueKey(prefix, queue, "messages"),
		LockTimes:   queueKey(prefix, queue, "lock-times"),
		Locks:       queueKey(prefix, queue, "locks"),
		Done:        queueKey(prefix, queue, "done"),
		Err:         queueKey(prefix, queue, "err"),
		ErrMessages: queueKey(prefix, queue, "err-msgs"),
		MidsReady:   queueKey(prefix, queue, "mids-ready"),
		MidCircle:   queueKey(prefix, queue, "mid-circle"),
		NDryRuns:    queueKey(prefix, queue, "ndry-runs"),
		ISleepA:     queueKey(prefix, queue, "isleep-a"),
		ISleepB:     queueKey(prefix, queue, "isleep-b"),
		SleepOn:     queueKey(prefix, queue, "sleep-on"),
		SweepPos:    queueKey(prefix, queue, "sweep-pos"),
		Schedule:    Schedule(prefix),
	}
}

// Schedule is not scoped by queue name; delayed jobs always land in the
// default queue.
func Schedule(prefix string) string {
	return fmt.Sprintf("%s:schedule", prefix)
}

// Pattern matches every key under prefix.
func Pattern(prefix string) string {
	return fmt.Sprintf("%s:*", prefix)
}

func queueKey(prefix, queue, name string) string {
	return fmt.Sprintf("%s:%s:%s", prefix, queue, name)
}
