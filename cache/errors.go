package cache

import (
	"errors"

	"github.com/goliatone/go-model-cache/internal/cacheinfra"
)

var (
	// ErrUnknownMethod is returned when a cached call names a method the collaborator does not provide.
	ErrUnknownMethod = errors.New("cache: unknown collaborator method")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("cache: invalid configuration")

	// ErrLockTimeout is returned to every waiter when a peer holds the lock past the wait timeout.
	ErrLockTimeout = cacheinfra.ErrLockTimeout
	// ErrLockUnavailable is returned when the lock backend cannot be reached.
	ErrLockUnavailable = cacheinfra.ErrLockUnavailable
)
