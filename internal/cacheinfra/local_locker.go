package cacheinfra

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// LocalLocker coalesces concurrent executions per key within this process.
type LocalLocker struct {
	group singleflight.Group
}

// NewLocalLocker creates a process-local single-flight lock.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// RunExclusive runs fn unless an execution for key is already in flight, in
// which case it waits for and returns that execution's result. The key is
// released as soon as fn returns, whether it failed or not.
func (l *LocalLocker) RunExclusive(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	v, err, _ := l.group.Do(key, func() (any, error) {
		return fn(ctx)
	})
	return v, err
}
