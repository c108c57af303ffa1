// Package capability models optional infrastructure as a value resolved once at startup and
// injected, instead of probing availability at call sites.
package capability

import (
	"context"
	"fmt"
)

// Capability is either Available with an implementation or Unavailable with a reason.
type Capability[T any] struct {
	impl      T
	available bool
	reason    string
}

// Available wraps a working implementation.
func Available[T any](impl T) Capability[T] {
	return Capability[T]{impl: impl, available: true}
}

// Unavailable records why an implementation could not be provided.
func Unavailable[T any](reason string) Capability[T] {
	return Capability[T]{reason: reason}
}

// Get returns the implementation and whether it is available.
func (c Capability[T]) Get() (T, bool) {
	return c.impl, c.available
}

// Available reports whether an implementation is present.
func (c Capability[T]) Available() bool { return c.available }

// Reason explains an Unavailable capability; empty when available.
func (c Capability[T]) Reason() string { return c.reason }

// OrElse returns the implementation, or fallback when unavailable.
func (c Capability[T]) OrElse(fallback T) T {
	if c.available {
		return c.impl
	}
	return fallback
}

func (c Capability[T]) String() string {
	if c.available {
		return "available"
	}
	return fmt.Sprintf("unavailable: %s", c.reason)
}

// Probe runs connect once. An empty target means the capability is not configured.
func Probe[T any](ctx context.Context, name, target string, connect func(context.Context, string) (T, error)) Capability[T] {
	if target == "" {
		return Unavailable[T](name + " not configured")
	}
	impl, err := connect(ctx, target)
	if err != nil {
		return Unavailable[T](fmt.Sprintf("%s: %v", name, err))
	}
	return Available(impl)
}
