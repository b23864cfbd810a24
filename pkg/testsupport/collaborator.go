package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-model-cache/cache"
)

// Result is the call signature for CountingCollaborator methods.
type Result func(ctx context.Context, args []any) (any, error)

// CountingCollaborator records how often each method runs.
type CountingCollaborator struct {
	name    string
	mu      sync.Mutex
	methods map[string]Result
	calls   map[string]*atomic.Int32

	// Delay is slept before every call, widening concurrency windows in tests.
	Delay time.Duration
}

// NewCountingCollaborator creates a collaborator named name.
func NewCountingCollaborator(name string) *CountingCollaborator {
	return &CountingCollaborator{
		name:    name,
		methods: map[string]Result{},
		calls:   map[string]*atomic.Int32{},
	}
}

// On registers method.
func (c *CountingCollaborator) On(method string, fn Result) *CountingCollaborator {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[method] = fn
	c.calls[method] = &atomic.Int32{}
	return c
}

// Returns registers method with a constant result.
func (c *CountingCollaborator) Returns(method string, value any) *CountingCollaborator {
	return c.On(method, func(context.Context, []any) (any, error) { return value, nil })
}

// Calls returns how many times method ran.
func (c *CountingCollaborator) Calls(method string) int {
	c.mu.Lock()
	counter, ok := c.calls[method]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return int(counter.Load())
}

func (c *CountingCollaborator) Name() string { return c.name }

func (c *CountingCollaborator) HasMethod(method string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.methods[method]
	return ok
}

func (c *CountingCollaborator) Invoke(ctx context.Context, method string, args []any) (any, error) {
	c.mu.Lock()
	fn, ok := c.methods[method]
	counter := c.calls[method]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", cache.ErrUnknownMethod, c.name, method)
	}

	counter.Add(1)
	if c.Delay > 0 {
		time.Sleep(c.Delay)
	}
	return fn(ctx, args)
}

// FromJSON decodes into a generic map, or any for non-objects.
func (c *CountingCollaborator) FromJSON(data json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
