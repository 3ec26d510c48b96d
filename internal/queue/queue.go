// Package queue implements the atomic queue protocol on Redis.
//
// Every operation that reads and then writes shared structures runs as a
// single Lua script or MULTI/EXEC transaction; nothing here does a
// client-side read-modify-write. Delivery is at-least-once: a job whose
// worker dies mid-execution is handed out again once its lock expires,
// so handlers must tolerate running twice.
//
// Finish and Fail clear the lock without checking who holds it. When a slow
// worker settles a job whose lock already expired and was reclaimed, the
// reclaimer's lock goes too; the job is terminal by then, so the next sweep
// drops it regardless of lock state.
package queue

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourorg/relayq/internal/keyspace"
)

const (
	DefaultPrefix     = "yq"
	DefaultQueueName  = "default"
	DefaultLock       = 60 * time.Minute
	DefaultSweepBatch = 100
)

// Options tunes a Queue. Zero values take the package defaults.
type Options struct {
	DefaultLock time.Duration
	// SweepBatch bounds how many circle entries one Dequeue may rotate
	// before giving up with a Skip.
	SweepBatch int
}

// Queue is a handle on one (prefix, name) queue. It holds no state besides
// key names and is safe for concurrent use.
type Queue struct {
	Name        string
	Prefix      string
	Keys        keyspace.Keys
	DefaultLock time.Duration
	SweepBatch  int

	rc *redis.Client
}

// New returns the queue name under prefix.
func New(rc *redis.Client, prefix, name string, opts Options) *Queue {
	if opts.DefaultLock <= 0 {
		opts.DefaultLock = DefaultLock
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = DefaultSweepBatch
	}
	return &Queue{
		Name:        name,
		Prefix:      prefix,
		Keys:        keyspace.For(prefix, name),
		DefaultLock: opts.DefaultLock,
		SweepBatch:  opts.SweepBatch,
		rc:          rc,
	}
}

// IsDefault reports whether delayed jobs may target this queue.
func (q *Queue) IsDefault() bool {
	return q.Name == DefaultQueueName
}

// Client exposes the underlying Redis client.
func (q *Queue) Client() *redis.Client {
	return q.rc
}
