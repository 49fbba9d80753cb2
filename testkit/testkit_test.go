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

package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/actormesh/actormesh/actor"
	"github.com/actormesh/actormesh/dependency"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type computation struct {
	Arg int
}

type plugin func(int) int

// calculator applies every plugin bound in its scope to the argument
func calculator(address string) actor.Definition {
	return actor.Definition{
		Address: actor.Fixed(address),
		Create: func(*actor.Context, any) (actor.Behavior, error) {
			return actor.BehaviorFunc(func(ctx *actor.Context, msg *actor.Message) error {
				request, ok := msg.Body.(computation)
				if !ok {
					return ctx.Unhandled()
				}
				plugins, err := dependency.AllOf[plugin](ctx.Context(), ctx.Dependencies(), "plugin")
				if err != nil {
					return err
				}
				result := request.Arg
				for _, apply := range plugins {
					result = apply(result)
				}
				return ctx.Reply(result)
			}), nil
		},
	}
}

func echo(address string) actor.Definition {
	return actor.Definition{
		Address: actor.Fixed(address),
		Create: func(*actor.Context, any) (actor.Behavior, error) {
			return actor.BehaviorFunc(func(ctx *actor.Context, msg *actor.Message) error {
				return ctx.Reply(msg.Body)
			}), nil
		},
	}
}

func TestTestKit(t *testing.T) {
	t.Run("Ask across a proxy node", func(t *testing.T) {
		kit := New(t)
		kit.AddNode("service")
		kit.AddNode("proxy")
		kit.AddNode("consumer")
		kit.Link("service", "proxy")
		kit.Link("proxy", "consumer")

		plugins := kit.System("service").Dependencies()
		require.NoError(t, plugins.Set(dependency.Provisioning{Key: "plugin", Value: plugin(func(x int) int { return x + 1 })}))
		require.NoError(t, plugins.Set(dependency.Provisioning{Key: "plugin", Value: plugin(func(x int) int { return x - 53 })}))
		kit.Spawn("service", calculator("computation:first"), nil)

		entry := kit.AwaitRoute("consumer", "computation:first", 2)
		assert.Equal(t, "proxy", entry.NodeID)

		var result any
		err := kit.System("consumer").Run(context.Background(), func(ctx *actor.Context) error {
			reply, err := ctx.ActorFor("computation:first").Ask(ctx.Context(), computation{Arg: 100})
			if err != nil {
				return err
			}
			result = reply.Body()
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 48, result)
	})
	t.Run("Routes disappear with the actor", func(t *testing.T) {
		kit := New(t, WithTimeout(2*time.Second))
		kit.AddNode("node-a")
		kit.AddNode("node-b")
		kit.Link("node-a", "node-b")

		kit.Spawn("node-b", echo("echo"), nil)
		kit.AwaitRoute("node-a", "echo", 1)
		require.True(t, kit.System("node-b").StopActor("echo"))
		kit.AwaitNoRoute("node-a", "echo")
	})
	t.Run("Breaking a link withdraws its routes", func(t *testing.T) {
		kit := New(t)
		kit.AddNode("node-a")
		kit.AddNode("node-b")
		pipe := kit.Link("node-a", "node-b")
		kit.Spawn("node-b", echo("echo"), nil)
		kit.AwaitRoute("node-a", "echo", 1)

		require.NoError(t, pipe.Close())
		kit.AwaitNoRoute("node-a", "echo")
	})
}

func TestProbe(t *testing.T) {
	kit := New(t, WithTimeout(500*time.Millisecond))
	kit.AddNode("node-a")
	kit.AddNode("node-b")
	kit.Link("node-a", "node-b")
	kit.Spawn("node-b", echo("echo"), nil)
	kit.AwaitRoute("node-a", "echo", 1)

	probe := kit.NewProbe("node-a", "probe")
	assert.Equal(t, "probe", probe.Address())
	kit.AwaitRoute("node-b", "probe", 1)

	probe.Send("echo", "hello")
	probe.ExpectMessage("hello")
	assert.Equal(t, "echo", probe.Sender())

	probe.SendSync("echo", computation{Arg: 1}, time.Second)
	assert.Equal(t, computation{Arg: 1}, probe.ExpectMessageOfType(computation{}))

	probe.Send("echo", 42)
	assert.Equal(t, 42, probe.ExpectAnyMessageWithin(time.Second))
	probe.Send("echo", "again")
	assert.Equal(t, "again", probe.ExpectAnyMessage())
	probe.Send("echo", "within")
	probe.ExpectMessageWithin(time.Second, "within")
	probe.ExpectNoMessage()

	probe.Stop()
	kit.AwaitNoRoute("node-b", "probe")
}
