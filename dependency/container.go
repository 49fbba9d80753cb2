// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package dependency implements a hierarchical, scope-aware binding store.
//
// A tree of containers is rooted at the global scope. Each scope holds its own
// bindings and sees the bindings of its ancestors, unless a key has been
// cleared on the scope or one of its ancestors below the binding.
package dependency

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/future"
)

const globalConsumer = "global"

// Provisioning registers a value, or a factory producing it, under Key.
type Provisioning struct {
	Key string
	// Target is the scope the binding belongs to. Nil means the global scope.
	Target *Container
	Value  any
	// Factory produces the value asynchronously. It runs at most once and its
	// outcome is shared by every resolution.
	Factory func(ctx context.Context) (any, error)
}

type binding struct {
	value   any
	factory func(ctx context.Context) (any, error)
	once    sync.Once
	result  future.Future[any]
}

func (b *binding) resolve(ctx context.Context) (any, error) {
	if b.factory == nil {
		return b.value, nil
	}
	b.once.Do(func() {
		produce := context.WithoutCancel(ctx)
		b.result = future.New(func() (any, error) {
			return b.factory(produce)
		})
	})
	return b.result.Await(ctx)
}

// Container is one scope of the binding tree.
type Container struct {
	consumer string
	parent   *Container
	root     *Container
	observer Observer

	mu       sync.RWMutex
	bindings map[string][]*binding
	cleared  map[string]struct{}
}

// New creates the global scope of a new container tree.
func New(opts ...Option) *Container {
	c := &Container{
		consumer: globalConsumer,
		bindings: make(map[string][]*binding),
		cleared:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt.Apply(c)
	}
	c.root = c
	return c
}

// NewScope creates a child scope owned by consumer.
func (c *Container) NewScope(consumer string) *Container {
	return &Container{
		consumer: consumer,
		parent:   c,
		root:     c.root,
		observer: c.observer,
		bindings: make(map[string][]*binding),
		cleared:  make(map[string]struct{}),
	}
}

// Consumer returns the name of the scope owner
func (c *Container) Consumer() string {
	return c.consumer
}

// Parent returns the enclosing scope, nil for the global scope
func (c *Container) Parent() *Container {
	return c.parent
}

// Global returns the root scope of the tree
func (c *Container) Global() *Container {
	return c.root
}

// Set adds a binding. Exactly one of Value and Factory must be set and the
// target, when given, must belong to the same tree.
func (c *Container) Set(p Provisioning) error {
	if p.Key == "" {
		return fmt.Errorf("%w: key is required", errors.ErrInvalidProvisioning)
	}
	if (p.Value == nil) == (p.Factory == nil) {
		return fmt.Errorf("%w: key %q needs exactly one of value or factory", errors.ErrInvalidProvisioning, p.Key)
	}

	target := p.Target
	if target == nil {
		target = c.root
	}
	if target.root != c.root {
		return fmt.Errorf("%w: key %q targets a foreign scope", errors.ErrInvalidProvisioning, p.Key)
	}

	target.mu.Lock()
	target.bindings[p.Key] = append(target.bindings[p.Key], &binding{value: p.Value, factory: p.Factory})
	target.mu.Unlock()
	return nil
}

// Clear removes the bindings of key held by target, or by the global scope when
// target is nil, and stops key from propagating into target from its ancestors.
func (c *Container) Clear(key string, target *Container) {
	if target == nil {
		target = c.root
	}
	target.mu.Lock()
	delete(target.bindings, key)
	target.cleared[key] = struct{}{}
	target.mu.Unlock()
}

// Get resolves key from this scope according to quantity.
// Factories are awaited concurrently.
func (c *Container) Get(ctx context.Context, key string, quantity Quantity) ([]any, error) {
	matches := c.lookup(key)
	size := len(matches)

	var err error
	switch {
	case quantity == Single && size == 0:
		err = fmt.Errorf("%w: %q for %s", errors.ErrNotFound, key, c.consumer)
	case quantity != Any && size > 1:
		err = fmt.Errorf("%w: %d bindings of %q for %s", errors.ErrAmbiguity, size, key, c.consumer)
	}

	var values []any
	if err == nil {
		values, err = resolveAll(ctx, matches)
	}

	if err != nil {
		c.publish(&ProvisioningSupplyError{Consumer: c.consumer, Key: key, Size: size, Quantity: quantity, Err: err})
		return nil, err
	}
	c.publish(&ProvisioningSupplied{Consumer: c.consumer, Key: key, Size: size, Quantity: quantity})
	return values, nil
}

// All returns every value bound to key
func (c *Container) All(ctx context.Context, key string) ([]any, error) {
	return c.Get(ctx, key, Any)
}

// Optional returns the value bound to key, or nil when there is none
func (c *Container) Optional(ctx context.Context, key string) (any, error) {
	values, err := c.Get(ctx, key, Optional)
	if err != nil || len(values) == 0 {
		return nil, err
	}
	return values[0], nil
}

// Single returns the one value bound to key
func (c *Container) Single(ctx context.Context, key string) (any, error) {
	values, err := c.Get(ctx, key, Single)
	if err != nil {
		return nil, err
	}
	return values[0], nil
}

// AllOf returns every value bound to key as T
func AllOf[T any](ctx context.Context, c *Container, key string) ([]T, error) {
	values, err := c.All(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(values))
	for _, value := range values {
		typed, err := cast[T](key, value)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}

// OptionalOf returns the value bound to key as T and whether it was found
func OptionalOf[T any](ctx context.Context, c *Container, key string) (T, bool, error) {
	var zero T
	value, err := c.Optional(ctx, key)
	if err != nil || value == nil {
		return zero, false, err
	}
	typed, err := cast[T](key, value)
	if err != nil {
		return zero, false, err
	}
	return typed, true, nil
}

// SingleOf returns the one value bound to key as T
func SingleOf[T any](ctx context.Context, c *Container, key string) (T, error) {
	value, err := c.Single(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](key, value)
}

func cast[T any](key string, value any) (T, error) {
	typed, ok := value.(T)
	if !ok {
		return typed, fmt.Errorf("dependency %q is %T, not %T", key, value, typed)
	}
	return typed, nil
}

// lookup collects the bindings visible from c, outermost scope first,
// stopping at the first scope on which key has been cleared.
func (c *Container) lookup(key string) []*binding {
	var levels [][]*binding
	for scope := c; scope != nil; scope = scope.parent {
		scope.mu.RLock()
		levels = append(levels, scope.bindings[key])
		_, cleared := scope.cleared[key]
		scope.mu.RUnlock()
		if cleared {
			break
		}
	}

	var matches []*binding
	for i := len(levels) - 1; i >= 0; i-- {
		matches = append(matches, levels[i]...)
	}
	return matches
}

func resolveAll(ctx context.Context, matches []*binding) ([]any, error) {
	values := make([]any, len(matches))
	eg, ctx := errgroup.WithContext(ctx)
	for i, b := range matches {
		eg.Go(func() error {
			value, err := b.resolve(ctx)
			if err != nil {
				return err
			}
			values[i] = value
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *Container) publish(event any) {
	if c.observer != nil {
		c.observer(event)
	}
}
