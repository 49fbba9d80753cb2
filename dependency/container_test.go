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

package dependency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	gerrors "github.com/actormesh/actormesh/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) observe(event any) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recorder) last() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func TestContainer(t *testing.T) {
	ctx := context.Background()

	t.Run("Quantity semantics with one binding", func(t *testing.T) {
		c := New()
		require.NoError(t, c.Set(Provisioning{Key: "k", Value: "v1"}))

		single, err := c.Single(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v1", single)

		optional, err := c.Optional(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v1", optional)

		all, err := c.All(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []any{"v1"}, all)
	})
	t.Run("Quantity semantics with no binding", func(t *testing.T) {
		c := New()

		optional, err := c.Optional(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, optional)

		_, err = c.Single(ctx, "k")
		assert.ErrorIs(t, err, gerrors.ErrNotFound)

		all, err := c.All(ctx, "k")
		require.NoError(t, err)
		assert.Empty(t, all)
	})
	t.Run("Quantity semantics with two bindings", func(t *testing.T) {
		c := New()
		require.NoError(t, c.Set(Provisioning{Key: "k", Value: "v1"}))
		require.NoError(t, c.Set(Provisioning{Key: "k", Factory: func(context.Context) (any, error) {
			time.Sleep(10 * time.Millisecond)
			return "v2", nil
		}}))

		_, err := c.Optional(ctx, "k")
		assert.ErrorIs(t, err, gerrors.ErrAmbiguity)
		_, err = c.Single(ctx, "k")
		assert.ErrorIs(t, err, gerrors.ErrAmbiguity)

		all, err := c.All(ctx, "k")
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"v1", "v2"}, all)
	})
	t.Run("Invalid provisioning", func(t *testing.T) {
		c := New()
		assert.ErrorIs(t, c.Set(Provisioning{Key: "k"}), gerrors.ErrInvalidProvisioning)
		assert.ErrorIs(t, c.Set(Provisioning{Value: 1}), gerrors.ErrInvalidProvisioning)
		assert.ErrorIs(t, c.Set(Provisioning{
			Key:     "k",
			Value:   1,
			Factory: func(context.Context) (any, error) { return 2, nil },
		}), gerrors.ErrInvalidProvisioning)
		assert.ErrorIs(t, c.Set(Provisioning{Key: "k", Value: 1, Target: New()}), gerrors.ErrInvalidProvisioning)
	})
	t.Run("Scopes inherit ancestor bindings", func(t *testing.T) {
		global := New()
		parent := global.NewScope("parent")
		child := parent.NewScope("child")

		require.NoError(t, global.Set(Provisioning{Key: "k", Value: "global"}))
		require.NoError(t, global.Set(Provisioning{Key: "k", Value: "parent", Target: parent}))
		require.NoError(t, global.Set(Provisioning{Key: "k", Value: "child", Target: child}))

		all, err := child.All(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []any{"global", "parent", "child"}, all)

		all, err = parent.All(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []any{"global", "parent"}, all)
	})
	t.Run("Clear stops propagation even for later bindings", func(t *testing.T) {
		global := New()
		parent := global.NewScope("parent")
		scope := parent.NewScope("scope")
		child := scope.NewScope("child")

		require.NoError(t, global.Set(Provisioning{Key: "k", Value: "global"}))
		require.NoError(t, global.Set(Provisioning{Key: "k", Value: "scope", Target: scope}))
		global.Clear("k", scope)

		all, err := child.All(ctx, "k")
		require.NoError(t, err)
		assert.Empty(t, all)

		require.NoError(t, global.Set(Provisioning{Key: "k", Value: "late-global"}))
		require.NoError(t, global.Set(Provisioning{Key: "k", Value: "late-parent", Target: parent}))
		all, err = child.All(ctx, "k")
		require.NoError(t, err)
		assert.Empty(t, all)

		require.NoError(t, global.Set(Provisioning{Key: "k", Value: "own", Target: scope}))
		all, err = child.All(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []any{"own"}, all)

		// the parent still sees its ancestors
		all, err = parent.All(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []any{"global", "late-global", "late-parent"}, all)
	})
	t.Run("Factory runs once and its outcome is shared", func(t *testing.T) {
		calls := atomic.NewInt32(0)
		c := New()
		require.NoError(t, c.Set(Provisioning{Key: "k", Factory: func(context.Context) (any, error) {
			calls.Inc()
			return 42, nil
		}}))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				value, err := SingleOf[int](ctx, c, "k")
				assert.NoError(t, err)
				assert.Equal(t, 42, value)
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, calls.Load())
	})
	t.Run("Factory failure surfaces to the caller", func(t *testing.T) {
		boom := errors.New("boom")
		c := New()
		require.NoError(t, c.Set(Provisioning{Key: "k", Factory: func(context.Context) (any, error) {
			return nil, boom
		}}))
		_, err := c.All(ctx, "k")
		assert.ErrorIs(t, err, boom)
	})
	t.Run("Typed helpers", func(t *testing.T) {
		c := New()
		require.NoError(t, c.Set(Provisioning{Key: "n", Value: 1}))
		require.NoError(t, c.Set(Provisioning{Key: "n", Value: 2}))
		require.NoError(t, c.Set(Provisioning{Key: "s", Value: "x"}))

		numbers, err := AllOf[int](ctx, c, "n")
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, numbers)

		_, err = SingleOf[int](ctx, c, "s")
		assert.Error(t, err)

		value, found, err := OptionalOf[string](ctx, c, "s")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "x", value)

		_, found, err = OptionalOf[string](ctx, c, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})
	t.Run("Resolution publishes events", func(t *testing.T) {
		rec := new(recorder)
		c := New(WithObserver(rec.observe))
		scope := c.NewScope("actor-1")
		require.NoError(t, c.Set(Provisioning{Key: "k", Value: 1}))

		_, err := scope.Single(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, &ProvisioningSupplied{Consumer: "actor-1", Key: "k", Size: 1, Quantity: Single}, rec.last())

		_, err = scope.Single(ctx, "missing")
		require.Error(t, err)
		event, ok := rec.last().(*ProvisioningSupplyError)
		require.True(t, ok)
		assert.Equal(t, "actor-1", event.Consumer)
		assert.Equal(t, Single, event.Quantity)
		assert.Zero(t, event.Size)
		assert.ErrorIs(t, event.Err, gerrors.ErrNotFound)
	})
	t.Run("Scope accessors", func(t *testing.T) {
		global := New(WithConsumer("root"))
		scope := global.NewScope("a")
		assert.Equal(t, "root", global.Consumer())
		assert.Equal(t, "a", scope.Consumer())
		assert.Same(t, global, scope.Parent())
		assert.Same(t, global, scope.NewScope("b").Global())
		assert.Nil(t, global.Parent())
		assert.Equal(t, "single", Single.String())
	})
}
