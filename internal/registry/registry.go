package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/yourorg/relayq/internal/envelope"
)

var (
	ErrDuplicateHandler = errors.New("handler already registered")
	ErrNoHandler        = errors.New("no handler registered")
)

// Handler is the function signature every job handler must implement.
// body is the serialized job as produced by envelope.Encode.
type Handler func(ctx context.Context, mid int64, body []byte) error

// Registry maps job types to Handler functions.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds jobType to h. Registering the same type twice is an error.
func (r *Registry) Register(jobType string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[jobType]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, jobType)
	}
	r.handlers[jobType] = h
	return nil
}

func (r *Registry) Lookup(jobType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[jobType]
	if !ok {
		return nil, fmt.Errorf("%w for: %q", ErrNoHandler, jobType)
	}
	return h, nil
}

// Dispatch decodes content and runs the matching handler. It returns the
// decoded job type even when the handler fails.
func (r *Registry) Dispatch(ctx context.Context, mid int64, content string) (string, error) {
	jobType, body, err := envelope.Decode(content)
	if err != nil {
		return "", err
	}
	h, err := r.Lookup(jobType)
	if err != nil {
		return jobType, err
	}
	return jobType, h(ctx, mid, body)
}

// Names returns registered job types in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
