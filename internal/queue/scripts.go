package queue

import (
	_ "embed"

	"github.com/redis/go-redis/v9"
)

//go:embed scripts/enqueue.lua
var enqueueSrc string

//go:embed scripts/enqueue_at.lua
var enqueueAtSrc string

//go:embed scripts/dequeue.lua
var dequeueSrc string

//go:embed scripts/promote_due.lua
var promoteDueSrc string

var (
	enqueueScript    = redis.NewScript(enqueueSrc)
	enqueueAtScript  = redis.NewScript(enqueueAtSrc)
	dequeueScript    = redis.NewScript(dequeueSrc)
	promoteDueScript = redis.NewScript(promoteDueSrc)
)
