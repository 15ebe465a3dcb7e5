// Package health aggregates dependency checks for the readiness probe.
package health

import (
	"context"
	"fmt"
	"time"
)

// Checker represents a dependency health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Pinger is anything with a Ping method, such as the stores and the lock.
type Pinger interface {
	Ping(ctx context.Context) error
}

type pingChecker struct {
	name    string
	target  Pinger
	timeout time.Duration
}

// Ping adapts a Pinger into a Checker bounded by timeout.
func Ping(name string, target Pinger, timeout time.Duration) Checker {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &pingChecker{name: name, target: target, timeout: timeout}
}

func (c *pingChecker) Name() string { return c.name }

func (c *pingChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.target.Ping(ctx)
}

// Service runs every checker in order and stops at the first failure.
type Service struct {
	checkers []Checker
}

// NewService aggregates dependency checkers.
func NewService(checkers ...Checker) *Service {
	return &Service{checkers: checkers}
}

// Ready returns the first failing check, prefixed with its name.
func (s *Service) Ready(ctx context.Context) error {
	for _, ch := range s.checkers {
		if err := ch.Check(ctx); err != nil {
			return fmt.Errorf("%s: %w", ch.Name(), err)
		}
	}
	return nil
}
