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

// Package testkit runs meshes of in-process nodes for tests.
package testkit

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/actormesh/actormesh/actor"
	"github.com/actormesh/actormesh/cluster"
	"github.com/actormesh/actormesh/internal/xsync"
	"github.com/actormesh/actormesh/log"
	"github.com/actormesh/actormesh/transport"
)

// DefaultTimeout is how long expectations wait by default
const DefaultTimeout = 3 * time.Second

// TestKit manages a set of nodes, each with its own actor system, linked by
// in-process pipes. Everything is released when the test ends.
type TestKit struct {
	kt          *testing.T
	logger      log.Logger
	timeout     time.Duration
	nodeOptions []cluster.Option
	nodes       *xsync.Map[string, *cluster.Node]

	mu    sync.Mutex
	order []string
}

// New creates an instance of TestKit
func New(t *testing.T, opts ...Option) *TestKit {
	t.Helper()
	kit := &TestKit{
		kt:      t,
		logger:  log.DiscardLogger,
		timeout: DefaultTimeout,
		nodes:   xsync.NewMap[string, *cluster.Node](),
	}
	for _, opt := range opts {
		opt.Apply(kit)
	}
	t.Cleanup(kit.shutdown)
	return kit
}

// AddNode creates a node named id together with its actor system
func (k *TestKit) AddNode(id string, opts ...actor.Option) *cluster.Node {
	k.kt.Helper()
	_, exists := k.nodes.Get(id)
	require.False(k.kt, exists, "node %s already exists", id)

	opts = append([]actor.Option{actor.WithLogger(k.logger)}, opts...)
	system, err := actor.NewSystem(id, opts...)
	require.NoError(k.kt, err)

	nodeOptions := append([]cluster.Option{
		cluster.WithNodeID(id),
		cluster.WithLogger(k.logger),
		cluster.WithHandshakeJitter(time.Millisecond, 5*time.Millisecond),
	}, k.nodeOptions...)
	node, err := cluster.NewNode(system, nodeOptions...)
	require.NoError(k.kt, err)

	k.nodes.Set(id, node)
	k.mu.Lock()
	k.order = append(k.order, id)
	k.mu.Unlock()
	return node
}

// Node returns the node named id
func (k *TestKit) Node(id string) *cluster.Node {
	k.kt.Helper()
	node, ok := k.nodes.Get(id)
	require.True(k.kt, ok, "unknown node %s", id)
	return node
}

// System returns the actor system of the node named id
func (k *TestKit) System(id string) *actor.System {
	k.kt.Helper()
	return k.Node(id).System()
}

// Link connects two nodes and waits for their handshake to complete.
// The returned pipe end can be closed to break the link.
func (k *TestKit) Link(left, right string) *transport.Pipe {
	k.kt.Helper()
	leftNode, rightNode := k.Node(left), k.Node(right)
	l, r := transport.NewPipe()
	require.NoError(k.kt, leftNode.Connect(l))
	require.NoError(k.kt, rightNode.Connect(r))
	require.Eventually(k.kt, func() bool {
		return slices.Contains(leftNode.Peers(), right) && slices.Contains(rightNode.Peers(), left)
	}, k.timeout, 5*time.Millisecond, "nodes %s and %s did not connect", left, right)
	return l
}

// Spawn creates an actor on the node named id
func (k *TestKit) Spawn(id string, definition actor.Definition, props any) *actor.Ref {
	k.kt.Helper()
	ref, err := k.System(id).ActorOf(definition, props)
	require.NoError(k.kt, err)
	return ref
}

// AwaitRoute waits until the node named id reaches address at the given distance
func (k *TestKit) AwaitRoute(id, address string, distance int) cluster.Entry {
	k.kt.Helper()
	node := k.Node(id)
	var entry cluster.Entry
	require.Eventually(k.kt, func() bool {
		var ok bool
		entry, ok = node.Route(address)
		return ok && entry.Distance == distance
	}, k.timeout, 5*time.Millisecond, "node %s has no route to %s at distance %d: %v", id, address, distance, node.Entries(address))
	return entry
}

// AwaitNoRoute waits until the node named id has no route to address
func (k *TestKit) AwaitNoRoute(id, address string) {
	k.kt.Helper()
	node := k.Node(id)
	require.Eventually(k.kt, func() bool {
		_, ok := node.Route(address)
		return !ok
	}, k.timeout, 5*time.Millisecond, "node %s still routes %s: %v", id, address, node.Entries(address))
}

// NewProbe creates a probe actor at address on the node named id
func (k *TestKit) NewProbe(id, address string) Probe {
	k.kt.Helper()
	probe, err := newProbe(k.kt, k.System(id), address, k.timeout)
	require.NoError(k.kt, err)
	return probe
}

func (k *TestKit) shutdown() {
	k.mu.Lock()
	order := k.order
	k.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		node, ok := k.nodes.Pop(order[i])
		if !ok {
			continue
		}
		if err := node.Close(); err != nil {
			k.kt.Errorf("failed to close node %s: %v", order[i], err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
		if err := node.System().Stop(ctx); err != nil {
			k.kt.Errorf("failed to stop actor system %s: %v", order[i], err)
		}
		cancel()
	}
}
