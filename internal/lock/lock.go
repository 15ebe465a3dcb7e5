// Package lock provides per-resume advisory locks shared between replicas.
package lock

import (
	"context"
	"errors"
)

// ErrHeld is returned when another holder owns the key.
var ErrHeld = errors.New("lock is held")

// Locker acquires a named lock. The returned release func must be called once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
	Ping(ctx context.Context) error
}

// Noop grants every lock. Used when no Redis is configured.
type Noop struct{}

// Acquire always succeeds.
func (Noop) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// Ping always succeeds.
func (Noop) Ping(context.Context) error { return nil }
