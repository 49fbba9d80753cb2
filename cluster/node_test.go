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

package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/actormesh/actormesh/actor"
	"github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/log"
	"github.com/actormesh/actormesh/protocol"
	"github.com/actormesh/actormesh/transport"
)

func TestNewNode(t *testing.T) {
	t.Run("Requires an actor system", func(t *testing.T) {
		_, err := NewNode(nil)
		assert.ErrorIs(t, err, errors.ErrInvalidState)
	})
	t.Run("Rejects invalid options", func(t *testing.T) {
		system, err := actor.NewSystem("invalid", actor.WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		defer func() { require.NoError(t, system.Stop(context.Background())) }()

		_, err = NewNode(system, WithNodeID(""))
		assert.Error(t, err)
		_, err = NewNode(system, WithHandshakeJitter(time.Second, time.Millisecond))
		assert.Error(t, err)
	})
	t.Run("Registers the existing local actors", func(t *testing.T) {
		system, err := actor.NewSystem("existing", actor.WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		defer func() { require.NoError(t, system.Stop(context.Background())) }()
		_, err = system.ActorOf(define("echo", echo()), nil)
		require.NoError(t, err)

		node, err := NewNode(system, WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		defer func() { require.NoError(t, node.Close()) }()

		assert.NotEmpty(t, node.ID())
		assert.Same(t, system, node.System())
		entry, ok := node.Route("echo")
		require.True(t, ok)
		assert.Equal(t, Entry{NodeID: node.ID(), Address: "echo", Distance: 0}, entry)

		_, err = system.ActorOf(define("ping", echo()), nil)
		require.NoError(t, err)
		assert.Contains(t, node.Routes(), "ping")
		require.True(t, system.StopActor("ping"))
		assert.NotContains(t, node.Routes(), "ping")
	})
	t.Run("Connect after Close fails", func(t *testing.T) {
		node := newNode(t, "closed")
		require.NoError(t, node.Close())
		require.NoError(t, node.Close())

		left, right := transport.NewPipe()
		defer right.Close()
		assert.ErrorIs(t, node.Connect(left), errors.ErrNodeClosed)
	})
}

func TestHandshake(t *testing.T) {
	t.Run("Linked nodes exchange their addresses", func(t *testing.T) {
		a := newNode(t, "node-a")
		b := newNode(t, "node-b")
		_, err := a.System().ActorOf(define("echo", echo()), nil)
		require.NoError(t, err)
		_, err = b.System().ActorOf(define("ping", echo()), nil)
		require.NoError(t, err)

		link(t, a, b)

		requireRoute(t, a, "ping", "node-b", 1)
		requireRoute(t, b, "echo", "node-a", 1)
		assert.Equal(t, []string{"node-b"}, a.Peers())
		assert.Equal(t, []string{"node-a"}, b.Peers())
	})
	t.Run("A handshake is answered with a confirm", func(t *testing.T) {
		a := newNode(t, "node-a", WithHandshakeJitter(time.Hour, time.Hour))
		_, err := a.System().ActorOf(define("echo", echo()), nil)
		require.NoError(t, err)

		left, raw := transport.NewPipe()
		require.NoError(t, a.Connect(left))
		require.NoError(t, raw.Send(&protocol.Packet{
			Kind:      protocol.Handshake,
			NodeID:    "raw",
			Version:   protocol.Version,
			Addresses: []protocol.Advertisement{{Address: "remote", Distance: 1}},
		}))

		confirm := receive(t, raw)
		assert.Equal(t, protocol.HandshakeConfirm, confirm.Kind)
		assert.Equal(t, "node-a", confirm.NodeID)
		assert.Equal(t, protocol.Version, confirm.Version)
		assert.Equal(t, []protocol.Advertisement{{Address: "echo", Distance: 1, Route: []string{"node-a"}}}, confirm.Addresses)

		requireRoute(t, a, "remote", "raw", 1)
		assert.Equal(t, []string{"raw"}, a.Peers())

		// a second handshake on a connected link is ignored
		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.Handshake, NodeID: "other", Version: protocol.Version}))
		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.AddAddress, Address: "late", Route: []string{"raw"}, Distance: 1}))
		requireRoute(t, a, "late", "raw", 1)
		assert.Equal(t, []string{"raw"}, a.Peers())
	})
	t.Run("The scheduled handshake carries the routing table", func(t *testing.T) {
		a := newNode(t, "node-a")
		_, err := a.System().ActorOf(define("echo", echo()), nil)
		require.NoError(t, err)

		left, raw := transport.NewPipe()
		require.NoError(t, a.Connect(left))

		handshake := receive(t, raw)
		assert.Equal(t, protocol.Handshake, handshake.Kind)
		assert.Equal(t, []protocol.Advertisement{{Address: "echo", Distance: 1, Route: []string{"node-a"}}}, handshake.Addresses)

		// packets produced while the handshake is pending reach the peer once connected
		_, err = a.System().ActorOf(define("ping", echo()), nil)
		require.NoError(t, err)
		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.HandshakeConfirm, NodeID: "raw", Version: protocol.Version}))

		added := receiveKind(t, raw, protocol.AddAddress)
		assert.Equal(t, "ping", added.Address)
		assert.Equal(t, []string{"node-a"}, added.Route)
		assert.Equal(t, 1, added.Distance)
	})
	t.Run("Incompatible versions close the link", func(t *testing.T) {
		a := newNode(t, "node-a", WithHandshakeJitter(time.Hour, time.Hour))
		left, raw := transport.NewPipe()
		require.NoError(t, a.Connect(left))

		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.Handshake, NodeID: "raw", Version: "2.0.0"}))
		_, err := raw.Receive(context.Background())
		assert.ErrorIs(t, err, errors.ErrLinkClosed)
		assert.Empty(t, a.Peers())
	})
	t.Run("A node cannot connect to itself", func(t *testing.T) {
		a := newNode(t, "node-a", WithHandshakeJitter(time.Hour, time.Hour))
		left, raw := transport.NewPipe()
		require.NoError(t, a.Connect(left))

		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.Handshake, NodeID: "node-a", Version: protocol.Version}))
		_, err := raw.Receive(context.Background())
		assert.ErrorIs(t, err, errors.ErrLinkClosed)
		assert.Empty(t, a.Peers())
	})
	t.Run("Packets received before the handshake are dropped", func(t *testing.T) {
		a := newNode(t, "node-a", WithHandshakeJitter(time.Hour, time.Hour))
		sink := newCounter()
		_, err := a.System().ActorOf(define("sink", sink), nil)
		require.NoError(t, err)
		left, raw := transport.NewPipe()
		require.NoError(t, a.Connect(left))

		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.AddAddress, Address: "early", Route: []string{"raw"}, Distance: 1}))
		require.NoError(t, raw.Send(&protocol.Packet{
			Kind:    protocol.SendMessage,
			Route:   []string{"raw"},
			Message: &actor.Message{To: "sink", Body: "too early"},
		}))
		require.NoError(t, raw.Send(&protocol.Packet{
			Kind:      protocol.Handshake,
			NodeID:    "raw",
			Version:   protocol.Version,
			Addresses: []protocol.Advertisement{{Address: "remote", Distance: 1}},
		}))

		requireRoute(t, a, "remote", "raw", 1)
		_, ok := a.Route("early")
		assert.False(t, ok)

		require.NoError(t, raw.Send(&protocol.Packet{
			Kind:    protocol.SendMessage,
			Route:   []string{"raw"},
			Message: &actor.Message{To: "sink", Body: "in time"},
		}))
		select {
		case body := <-sink.received:
			assert.Equal(t, "in time", body)
		case <-time.After(5 * time.Second):
			t.Fatal("message sent after the handshake was not delivered")
		}
	})
	t.Run("Topology packets must come from the peer of the link", func(t *testing.T) {
		a := newNode(t, "node-a", WithHandshakeJitter(time.Hour, time.Hour))
		left, raw := transport.NewPipe()
		require.NoError(t, a.Connect(left))
		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.Handshake, NodeID: "raw", Version: protocol.Version}))
		receiveKind(t, raw, protocol.HandshakeConfirm)

		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.AddAddress, Address: "spoofed", Route: []string{"someone-else"}, Distance: 1}))
		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.AddAddress, Address: "genuine", Route: []string{"raw"}, Distance: 1}))
		requireRoute(t, a, "genuine", "raw", 1)
		_, ok := a.Route("spoofed")
		assert.False(t, ok)
	})
}

func TestRouting(t *testing.T) {
	t.Run("Addresses converge across intermediate nodes", func(t *testing.T) {
		a := newNode(t, "node-a")
		b := newNode(t, "node-b")
		c := newNode(t, "node-c")
		link(t, a, b)
		link(t, b, c)
		require.Eventually(t, func() bool { return len(b.Peers()) == 2 }, 5*time.Second, 5*time.Millisecond)

		_, err := c.System().ActorOf(define("echo", echo()), nil)
		require.NoError(t, err)

		requireRoute(t, b, "echo", "node-c", 1)
		requireRoute(t, a, "echo", "node-b", 2)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		reply, err := a.System().ActorFor("echo").Ask(ctx, "hello", actor.WithTimeout(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, "hello", reply.Body())

		require.True(t, c.System().StopActor("echo"))
		requireNoRoute(t, b, "echo")
		requireNoRoute(t, a, "echo")
	})
	t.Run("Messages are delivered once in a cycle", func(t *testing.T) {
		a := newNode(t, "node-a")
		b := newNode(t, "node-b")
		c := newNode(t, "node-c")
		sink := newCounter()
		_, err := a.System().ActorOf(define("sink", sink), nil)
		require.NoError(t, err)

		link(t, a, b)
		link(t, b, c)
		link(t, a, c)

		require.Eventually(t, func() bool { return len(c.Entries("sink")) == 2 }, 5*time.Second, 5*time.Millisecond)
		assert.Equal(t, []Entry{
			{NodeID: "node-a", Address: "sink", Distance: 1},
			{NodeID: "node-b", Address: "sink", Distance: 2},
		}, c.Entries("sink"))

		for i := range 10 {
			c.System().ActorFor("sink").Send(i)
		}
		for i := range 10 {
			select {
			case body := <-sink.received:
				assert.Equal(t, i, body)
			case <-time.After(5 * time.Second):
				t.Fatalf("message %d was not delivered", i)
			}
		}
		select {
		case body := <-sink.received:
			t.Fatalf("unexpected duplicate %v", body)
		case <-time.After(50 * time.Millisecond):
		}
	})
	t.Run("Messages are never sent back along their route", func(t *testing.T) {
		a := newNode(t, "node-a", WithHandshakeJitter(time.Hour, time.Hour))
		left, raw := transport.NewPipe()
		require.NoError(t, a.Connect(left))
		require.NoError(t, raw.Send(&protocol.Packet{
			Kind:      protocol.Handshake,
			NodeID:    "raw",
			Version:   protocol.Version,
			Addresses: []protocol.Advertisement{{Address: "remote", Distance: 1}},
		}))
		receiveKind(t, raw, protocol.HandshakeConfirm)
		requireRoute(t, a, "remote", "raw", 1)

		require.NoError(t, raw.Send(&protocol.Packet{
			Kind:    protocol.SendMessage,
			Route:   []string{"raw"},
			Message: &actor.Message{To: "remote", Body: "loop"},
		}))

		// a local send is forwarded with the local id as route
		a.System().ActorFor("remote").Send("forward")
		forwarded := receiveKind(t, raw, protocol.SendMessage)
		assert.Equal(t, "forward", forwarded.Message.Body)
		assert.Equal(t, []string{"node-a"}, forwarded.Route)
	})
	t.Run("Relayed packets carry the extended route", func(t *testing.T) {
		a := newNode(t, "node-a", WithHandshakeJitter(time.Hour, time.Hour))
		_, err := a.System().ActorOf(define("echo", echo()), nil)
		require.NoError(t, err)

		left, raw := transport.NewPipe()
		require.NoError(t, a.Connect(left))
		leftOther, other := transport.NewPipe()
		require.NoError(t, a.Connect(leftOther))
		for _, end := range []*transport.Pipe{raw, other} {
			id := "raw"
			if end == other {
				id = "other"
			}
			require.NoError(t, end.Send(&protocol.Packet{Kind: protocol.Handshake, NodeID: id, Version: protocol.Version}))
			receiveKind(t, end, protocol.HandshakeConfirm)
		}
		require.Eventually(t, func() bool { return len(a.Peers()) == 2 }, 5*time.Second, 5*time.Millisecond)

		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.AddAddress, Address: "remote", Route: []string{"far", "raw"}, Distance: 2}))
		added := receiveKind(t, other, protocol.AddAddress)
		assert.Equal(t, "remote", added.Address)
		assert.Equal(t, []string{"far", "raw", "node-a"}, added.Route)
		assert.Equal(t, 3, added.Distance)
		requireRoute(t, a, "remote", "raw", 2)
		// the announcement never goes back to a node of its route
		requireQuiet(t, raw, 100*time.Millisecond, protocol.AddAddress, protocol.RemoveAddress)

		require.NoError(t, other.Send(&protocol.Packet{
			Kind:    protocol.SendMessage,
			Route:   []string{"far2"},
			Message: &actor.Message{To: "remote", Body: "through"},
		}))
		relayed := receiveKind(t, raw, protocol.SendMessage)
		assert.Equal(t, []string{"far2", "node-a"}, relayed.Route)

		require.NoError(t, raw.Send(&protocol.Packet{Kind: protocol.RemoveAddress, Address: "remote", Route: []string{"far", "raw"}}))
		removed := receiveKind(t, other, protocol.RemoveAddress)
		assert.Equal(t, "remote", removed.Address)
		assert.Equal(t, []string{"far", "raw", "node-a"}, removed.Route)
		requireNoRoute(t, a, "remote")
		requireQuiet(t, raw, 100*time.Millisecond, protocol.AddAddress, protocol.RemoveAddress)

		// announcements whose route holds the node are ignored
		require.NoError(t, other.Send(&protocol.Packet{Kind: protocol.AddAddress, Address: "looped", Route: []string{"node-a", "other"}, Distance: 2}))
		requireQuiet(t, raw, 100*time.Millisecond, protocol.AddAddress)
		_, ok := a.Route("looped")
		assert.False(t, ok)
	})
	t.Run("Actors stopped by their constructor are withdrawn", func(t *testing.T) {
		a := newNode(t, "node-a")
		b := newNode(t, "node-b")
		link(t, a, b)
		_, err := a.System().ActorOf(define("marker", echo()), nil)
		require.NoError(t, err)
		requireRoute(t, b, "marker", "node-a", 1)

		_, err = a.System().ActorOf(actor.Definition{
			Address: actor.Fixed("quitter"),
			Create: func(ctx *actor.Context, _ any) (actor.Behavior, error) {
				ctx.Stop()
				return echo(), nil
			},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"marker"}, a.System().Addresses())

		// announcements are ordered on the link: once the next one arrives the
		// withdrawal of the stopped actor has been handled
		_, err = a.System().ActorOf(define("after", echo()), nil)
		require.NoError(t, err)
		requireRoute(t, b, "after", "node-a", 1)
		requireNoRoute(t, a, "quitter")
		requireNoRoute(t, b, "quitter")
	})
}

func TestLinkClose(t *testing.T) {
	t.Run("Routes through a closed link are purged", func(t *testing.T) {
		a := newNode(t, "node-a")
		b := newNode(t, "node-b")
		c := newNode(t, "node-c")
		link(t, a, b)
		bc := link(t, b, c)
		_, err := c.System().ActorOf(define("echo", echo()), nil)
		require.NoError(t, err)
		requireRoute(t, a, "echo", "node-b", 2)

		require.NoError(t, bc.Close())
		require.Eventually(t, func() bool { return len(b.Peers()) == 1 }, 5*time.Second, 5*time.Millisecond)
		requireNoRoute(t, b, "echo")
		requireNoRoute(t, a, "echo")
		require.Eventually(t, func() bool { return len(c.Peers()) == 0 }, 5*time.Second, 5*time.Millisecond)
	})
	t.Run("Partitioned addresses are withdrawn everywhere", func(t *testing.T) {
		a := newNode(t, "node-a")
		b := newNode(t, "node-b")
		c := newNode(t, "node-c")
		_, err := c.System().ActorOf(define("echo", echo()), nil)
		require.NoError(t, err)
		link(t, a, b)
		bc := link(t, b, c)
		ac := link(t, a, c)
		require.Eventually(t, func() bool {
			return len(a.Entries("echo")) == 2 && len(b.Entries("echo")) == 2
		}, 5*time.Second, 5*time.Millisecond)

		require.NoError(t, bc.Close())
		requireRoute(t, b, "echo", "node-a", 2)
		require.Eventually(t, func() bool { return len(a.Entries("echo")) == 1 }, 5*time.Second, 5*time.Millisecond)
		requireRoute(t, a, "echo", "node-c", 1)

		require.NoError(t, ac.Close())
		require.Eventually(t, func() bool { return len(c.Peers()) == 0 }, 5*time.Second, 5*time.Millisecond)
		requireNoRoute(t, a, "echo")
		requireNoRoute(t, b, "echo")
		assert.False(t, a.Forward(&actor.Message{To: "echo"}))
	})
	t.Run("Another route takes over", func(t *testing.T) {
		a := newNode(t, "node-a")
		b := newNode(t, "node-b")
		c := newNode(t, "node-c")
		_, err := a.System().ActorOf(define("echo", echo()), nil)
		require.NoError(t, err)
		link(t, a, b)
		link(t, b, c)
		ac := link(t, a, c)
		require.Eventually(t, func() bool { return len(c.Entries("echo")) == 2 }, 5*time.Second, 5*time.Millisecond)

		require.NoError(t, ac.Close())
		requireRoute(t, c, "echo", "node-b", 2)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		reply, err := c.System().ActorFor("echo").Ask(ctx, "still there", actor.WithTimeout(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, "still there", reply.Body())
	})
}

func TestNodeClose(t *testing.T) {
	a := newNode(t, "node-a")
	b := newNode(t, "node-b")
	_, err := b.System().ActorOf(define("echo", echo()), nil)
	require.NoError(t, err)
	link(t, a, b)
	requireRoute(t, a, "echo", "node-b", 1)

	subscriber := a.System().Subscribe()
	defer a.System().Unsubscribe(subscriber)

	require.NoError(t, a.Close())
	assert.False(t, a.Forward(&actor.Message{To: "echo"}))
	require.Eventually(t, func() bool { return len(b.Peers()) == 0 }, 5*time.Second, 5*time.Millisecond)

	a.System().ActorFor("echo").Send("lost")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		message, ok := subscriber.Next(ctx)
		require.True(t, ok, "no undelivered event")
		if event, ok := message.Payload().(*actor.UndeliveredMessage); ok {
			assert.Equal(t, "echo", event.Message.To)
			break
		}
	}
}

func TestNodeMetrics(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))

	a := newNode(t, "node-a", WithMeterProvider(provider))
	b := newNode(t, "node-b")
	_, err := b.System().ActorOf(define("echo", newCounter()), nil)
	require.NoError(t, err)
	link(t, a, b)
	requireRoute(t, a, "echo", "node-b", 1)

	a.System().ActorFor("echo").Send("counted")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	values := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
				values[m.Name] = sum.DataPoints[0].Value
			}
		}
	}
	assert.EqualValues(t, 1, values["actormesh.node.peers"])
	assert.EqualValues(t, 1, values["actormesh.node.routes"])
	assert.EqualValues(t, 1, values["actormesh.node.messages.forwarded"])
}
