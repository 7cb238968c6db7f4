package state

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
)

// ErrNotRegistered indicates a lookup for a type that was never registered.
// Hitting it at request time is a programming error, not a client error.
var ErrNotRegistered = errors.New("state: type not registered")

// Container holds process-wide shared values keyed by their concrete type.
// Values are registered once at application build time and shared across all
// concurrent requests. The container never copies or locks the values it
// hands out; any internal mutability is the value's own responsibility.
type Container struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
}

// NewContainer creates an empty state container.
func NewContainer() *Container {
	return &Container{values: make(map[reflect.Type]any)}
}

// Register stores v in the container under its concrete type.
// Registering the same type twice is a configuration error and panics.
func Register[T any](c *Container, v T) {
	t := reflect.TypeOf(v)
	if t == nil {
		panic("state: cannot register untyped nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.values[t]; exists {
		panic(fmt.Sprintf("state: type %s already registered", t))
	}
	c.values[t] = v
}

// Get retrieves the value registered under type T.
func Get[T any](c *Container) (T, error) {
	var zero T
	if c == nil {
		return zero, fmt.Errorf("%w: %T (no container)", ErrNotRegistered, zero)
	}

	v, ok := c.Lookup(reflect.TypeOf(zero))
	if !ok {
		// Interface types have a nil reflect.TypeOf; fall back to scanning
		// for an implementation.
		if t := reflect.TypeFor[T](); t.Kind() == reflect.Interface {
			if v, ok = c.lookupAssignable(t); ok {
				return v.(T), nil
			}
		}
		return zero, fmt.Errorf("%w: %T", ErrNotRegistered, zero)
	}
	return v.(T), nil
}

// MustGet retrieves the value registered under type T and panics if absent.
// Intended for application wiring code, not for request handling.
func MustGet[T any](c *Container) T {
	v, err := Get[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

// Lookup returns the value registered under the exact type t.
func (c *Container) Lookup(t reflect.Type) (any, bool) {
	if c == nil || t == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[t]
	return v, ok
}

// Resolve returns the value registered under t, falling back to an
// assignability scan when t is an interface type. It is the lookup used by
// reflection-driven consumers that only have a reflect.Type in hand.
func (c *Container) Resolve(t reflect.Type) (any, bool) {
	if c == nil || t == nil {
		return nil, false
	}
	if v, ok := c.Lookup(t); ok {
		return v, true
	}
	if t.Kind() == reflect.Interface {
		return c.lookupAssignable(t)
	}
	return nil, false
}

// lookupAssignable returns the first registered value assignable to t.
// Used for interface-typed lookups where the concrete type differs.
func (c *Container) lookupAssignable(t reflect.Type) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for vt, v := range c.values {
		if vt.AssignableTo(t) {
			return v, true
		}
	}
	return nil, false
}

type containerContextKey struct{}

// NewContext returns a context carrying the container.
// The router attaches the container to each request before dispatch.
func NewContext(ctx context.Context, c *Container) context.Context {
	return context.WithValue(ctx, containerContextKey{}, c)
}

// FromContext extracts the container from a context.
func FromContext(ctx context.Context) (*Container, bool) {
	c, ok := ctx.Value(containerContextKey{}).(*Container)
	return c, ok
}

// FromRequest extracts the container from a request's context.
func FromRequest(r *http.Request) (*Container, bool) {
	return FromContext(r.Context())
}

// Value retrieves the value of type T from the container attached to the
// request. It fails with ErrNotRegistered if no container is attached or the
// type was never registered.
func Value[T any](r *http.Request) (T, error) {
	c, ok := FromRequest(r)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %T (no container attached to request)", ErrNotRegistered, zero)
	}
	return Get[T](c)
}
