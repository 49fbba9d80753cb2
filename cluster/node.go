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
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	"github.com/actormesh/actormesh/actor"
	"github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/internal/errorschain"
	"github.com/actormesh/actormesh/internal/validation"
	"github.com/actormesh/actormesh/log"
	"github.com/actormesh/actormesh/metric"
	"github.com/actormesh/actormesh/protocol"
)

const instrumentationName = "github.com/actormesh/actormesh/cluster"

// Node connects an actor system to its peers. It maintains a distance
// vector routing table of every actor address known in the mesh and
// forwards messages addressed to remote actors to the best next hop.
//
// Node implements actor.Router and installs itself on the system when created.
type Node struct {
	id            string
	system        *actor.System
	logger        log.Logger
	jitterMin     time.Duration
	jitterMax     time.Duration
	meterProvider otelmetric.MeterProvider

	// mu guards the links, the peers and the table. Link.Send is called
	// with mu held so that packets leave in the order they were produced.
	mu     sync.Mutex
	links  map[*peerLink]struct{}
	peers  map[string]*peerLink
	table  *table
	closed bool

	forwarded    *atomic.Int64
	registration otelmetric.Registration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ actor.Router = (*Node)(nil)

// NewNode creates a node serving the given actor system
func NewNode(system *actor.System, opts ...Option) (*Node, error) {
	if system == nil {
		return nil, fmt.Errorf("%w: actor system is required", errors.ErrInvalidState)
	}

	ctx, cancel := context.WithCancel(context.Background())
	node := &Node{
		id:        uuid.NewString(),
		system:    system,
		logger:    system.Logger(),
		jitterMin: DefaultHandshakeJitterMin,
		jitterMax: DefaultHandshakeJitterMax,
		links:     make(map[*peerLink]struct{}),
		peers:     make(map[string]*peerLink),
		table:     newTable(),
		forwarded: atomic.NewInt64(0),
		ctx:       ctx,
		cancel:    cancel,
	}

	for _, opt := range opts {
		opt.Apply(node)
	}

	if err := validation.New(validation.AllErrors()).
		AddAssertion(node.id != "", "node id is required").
		AddAssertion(node.logger != nil, "logger is required").
		AddAssertion(node.jitterMin >= 0 && node.jitterMin <= node.jitterMax, "invalid handshake jitter bounds").
		Validate(); err != nil {
		cancel()
		return nil, err
	}

	node.logger = node.logger.With("node", node.id)

	if err := node.registerMetrics(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register node metrics: %w", err)
	}

	node.mu.Lock()
	system.SetRouter(node)
	for _, address := range system.Addresses() {
		node.table.add(address, []string{node.id}, 0)
	}
	node.mu.Unlock()

	node.logger.Infof("node %s started", node.id)
	return node, nil
}

// ID returns the node identifier
func (n *Node) ID() string {
	return n.id
}

// System returns the actor system served by the node
func (n *Node) System() *actor.System {
	return n.system
}

// Connect attaches a link to the node. The handshake is sent after a random
// delay unless the remote end handshakes first.
func (n *Node) Connect(link Link) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return errors.ErrNodeClosed
	}

	pl := &peerLink{link: link, state: unconnected}
	n.links[pl] = struct{}{}
	pl.timer = time.AfterFunc(n.jitter(), func() { n.initiate(pl) })
	n.wg.Add(1)
	n.mu.Unlock()

	go n.receive(pl)
	return nil
}

// Peers returns the identifiers of the connected peers, sorted
func (n *Node) Peers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	peers := make([]string, 0, len(n.peers))
	for id := range n.peers {
		peers = append(peers, id)
	}
	sort.Strings(peers)
	return peers
}

// Route returns the best known route to the given address
func (n *Node) Route(address string) (Entry, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.table.best(address, nil)
}

// Routes returns the best known route of every address in the table
func (n *Node) Routes() map[string]Entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.table.routes()
}

// Entries returns every route known for the given address, best first
func (n *Node) Entries(address string) []Entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.table.list(address)
}

// Forward sends a message to the best next hop toward its recipient.
// It returns false when no route is known.
func (n *Node) Forward(msg *actor.Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	return n.forward(msg, []string{n.id})
}

// ActorCreated records a local address and announces it to the peers
func (n *Node) ActorCreated(address string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	if n.table.add(address, []string{n.id}, 0) == nil {
		return
	}
	n.broadcast(&protocol.Packet{
		Kind:     protocol.AddAddress,
		Address:  address,
		Route:    []string{n.id},
		Distance: 1,
	})
}

// ActorDestroyed removes a local address and withdraws it from the peers
func (n *Node) ActorDestroyed(address string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	if n.table.remove(address, []string{n.id}) == nil {
		return
	}
	n.broadcast(&protocol.Packet{
		Kind:    protocol.RemoveAddress,
		Address: address,
		Route:   []string{n.id},
	})
}

// Close detaches the node from the actor system and closes every link
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	links := make([]*peerLink, 0, len(n.links))
	for pl := range n.links {
		pl.timer.Stop()
		links = append(links, pl)
	}
	n.mu.Unlock()

	n.system.SetRouter(nil)
	n.cancel()

	chain := errorschain.New()
	for _, pl := range links {
		chain.AddStep("close link to "+pl.peer, pl.link.Close())
	}
	n.wg.Wait()

	if n.registration != nil {
		chain.AddStep("unregister node metrics", n.registration.Unregister())
	}
	n.logger.Infof("node %s stopped", n.id)
	return chain.Error()
}

func (n *Node) jitter() time.Duration {
	delay := n.jitterMin
	if spread := n.jitterMax - n.jitterMin; spread > 0 {
		delay += rand.N(spread)
	}
	return delay
}

// initiate sends the handshake when the remote end has not sent one first
func (n *Node) initiate(pl *peerLink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || pl.state != unconnected {
		return
	}
	pl.state = handshakePending
	n.send(pl, &protocol.Packet{
		Kind:      protocol.Handshake,
		NodeID:    n.id,
		Version:   protocol.Version,
		Addresses: n.table.advertise(n.id),
	})
}

func (n *Node) receive(pl *peerLink) {
	defer n.wg.Done()
	for {
		packet, err := pl.link.Receive(n.ctx)
		if err != nil {
			n.detach(pl, err)
			return
		}

		if err := packet.Validate(); err != nil {
			n.logger.Warnf("dropping packet: %v", err)
			continue
		}

		switch packet.Kind {
		case protocol.Handshake, protocol.HandshakeConfirm:
			n.handshake(pl, packet)
		case protocol.AddAddress:
			n.addAddress(pl, packet)
		case protocol.RemoveAddress:
			n.removeAddress(pl, packet)
		case protocol.SendMessage:
			n.deliver(pl, packet)
		}
	}
}

func (n *Node) handshake(pl *peerLink, packet *protocol.Packet) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if pl.state == connected || pl.state == closed {
		n.logger.Debugf("ignoring %s from %s", packet.Kind, packet.NodeID)
		return
	}
	pl.timer.Stop()

	if err := protocol.Compatible(packet.Version); err != nil {
		n.logger.Errorf("rejecting %s from %s: %v", packet.Kind, packet.NodeID, err)
		n.reject(pl)
		return
	}

	if packet.NodeID == n.id {
		n.logger.Errorf("rejecting %s: node %s connected to itself", packet.Kind, n.id)
		n.reject(pl)
		return
	}

	if _, ok := n.peers[packet.NodeID]; ok {
		n.logger.Warnf("rejecting %s: node %s is already connected", packet.Kind, packet.NodeID)
		n.reject(pl)
		return
	}

	if packet.Kind == protocol.Handshake {
		n.send(pl, &protocol.Packet{
			Kind:      protocol.HandshakeConfirm,
			NodeID:    n.id,
			Version:   protocol.Version,
			Addresses: n.table.advertise(n.id),
		})
	}

	peer := packet.NodeID
	pl.state = connected
	pl.peer = peer
	n.peers[peer] = pl

	for _, advertisement := range packet.Addresses {
		route := advertisement.Route
		if len(route) == 0 {
			route = []string{peer}
		}
		if advertisement.Address == "" || route[len(route)-1] != peer || mapset.NewThreadUnsafeSet(route...).Contains(n.id) {
			continue
		}
		distance := advertisement.Distance
		if distance <= 0 {
			distance = len(route)
		}
		n.learn(advertisement.Address, route, distance)
	}

	pending := pl.pending
	pl.pending = nil
	for _, p := range pending {
		if !mapset.NewThreadUnsafeSet(p.Route...).Contains(peer) {
			n.send(pl, p)
		}
	}

	n.logger.Infof("connected to node %s", peer)
}

func (n *Node) addAddress(pl *peerLink, packet *protocol.Packet) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if pl.state != connected {
		n.logger.Warnf("dropping %s for %s received before the handshake", packet.Kind, packet.Address)
		return
	}

	if packet.Last() != pl.peer {
		n.logger.Warnf("dropping %s for %s announced by %s on the link to %s", packet.Kind, packet.Address, packet.Last(), pl.peer)
		return
	}
	if mapset.NewThreadUnsafeSet(packet.Route...).Contains(n.id) {
		return
	}
	n.learn(packet.Address, packet.Route, packet.Hops())
}

func (n *Node) removeAddress(pl *peerLink, packet *protocol.Packet) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if pl.state != connected {
		n.logger.Warnf("dropping %s for %s received before the handshake", packet.Kind, packet.Address)
		return
	}

	if packet.Last() != pl.peer {
		n.logger.Warnf("dropping %s for %s announced by %s on the link to %s", packet.Kind, packet.Address, packet.Last(), pl.peer)
		return
	}
	if mapset.NewThreadUnsafeSet(packet.Route...).Contains(n.id) {
		return
	}
	if p := n.table.remove(packet.Address, packet.Route); p != nil && p.relayed {
		n.withdraw(packet.Address, p.route)
	}
}

// learn records a path announced by a peer and passes it on to the other
// peers, unless the address is hosted here. mu must be held.
func (n *Node) learn(address string, route []string, distance int) {
	p := n.table.add(address, route, distance)
	if p == nil || n.table.local(address, n.id) {
		return
	}
	p.relayed = true
	n.broadcast(&protocol.Packet{
		Kind:     protocol.AddAddress,
		Address:  address,
		Route:    extend(route, n.id),
		Distance: distance + 1,
	})
}

// withdraw passes on the removal of a relayed path along the route it was
// announced with. mu must be held.
func (n *Node) withdraw(address string, route []string) {
	n.broadcast(&protocol.Packet{
		Kind:    protocol.RemoveAddress,
		Address: address,
		Route:   extend(route, n.id),
	})
}

func (n *Node) deliver(pl *peerLink, packet *protocol.Packet) {
	n.mu.Lock()
	ready := pl.state == connected
	n.mu.Unlock()
	if !ready {
		n.logger.Warnf("dropping message to %s received before the handshake", packet.Message.To)
		return
	}

	if n.system.SendLocalMessage(packet.Message) {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.forward(packet.Message, extend(packet.Route, n.id)) {
		n.logger.Warnf("no route to %s, message dropped", packet.Message.To)
	}
}

// forward sends msg to the best next hop that is not part of the route.
// mu must be held.
func (n *Node) forward(msg *actor.Message, route []string) bool {
	entry, ok := n.table.best(msg.To, mapset.NewThreadUnsafeSet(route...))
	if !ok {
		return false
	}
	next, ok := n.peers[entry.NodeID]
	if !ok {
		return false
	}
	n.send(next, &protocol.Packet{
		Kind:    protocol.SendMessage,
		Message: msg,
		Route:   route,
	})
	n.forwarded.Inc()
	return true
}

// detach forgets a link that failed or was closed. Every path learned through
// it is withdrawn from the remaining peers.
func (n *Node) detach(pl *peerLink, cause error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	wasConnected := pl.state == connected
	pl.state = closed
	pl.timer.Stop()
	pl.pending = nil
	delete(n.links, pl)
	_ = pl.link.Close()

	if !wasConnected || n.peers[pl.peer] != pl {
		return
	}
	delete(n.peers, pl.peer)

	if n.closed {
		return
	}

	n.logger.Infof("link to node %s closed: %v", pl.peer, cause)
	for _, removed := range n.table.purge(pl.peer) {
		if removed.relayed {
			n.withdraw(removed.address, removed.route)
		}
	}
}

// reject closes a link whose handshake cannot be accepted. mu must be held.
func (n *Node) reject(pl *peerLink) {
	pl.state = closed
	if err := pl.link.Close(); err != nil {
		n.logger.Warnf("failed to close link: %v", err)
	}
}

// broadcast sends a topology packet to every connected peer that is not part
// of its route and queues it on links still waiting for their handshake.
// mu must be held.
func (n *Node) broadcast(packet *protocol.Packet) {
	route := mapset.NewThreadUnsafeSet(packet.Route...)
	for pl := range n.links {
		switch pl.state {
		case connected:
			if !route.Contains(pl.peer) {
				n.send(pl, packet.Clone())
			}
		case unconnected, handshakePending:
			pl.pending = append(pl.pending, packet.Clone())
		}
	}
}

// send hands a packet to the link. mu must be held.
func (n *Node) send(pl *peerLink, packet *protocol.Packet) {
	if err := pl.link.Send(packet); err != nil {
		n.logger.Warnf("failed to send %s on link %s: %v", packet.Kind, pl.state, err)
	}
}

func (n *Node) registerMetrics() error {
	if n.meterProvider == nil {
		return nil
	}

	meter := n.meterProvider.Meter(instrumentationName)
	metrics, err := metric.NewNodeMetric(meter)
	if err != nil {
		return err
	}

	observeOptions := []otelmetric.ObserveOption{
		otelmetric.WithAttributes(attribute.String("node.id", n.id)),
	}

	n.registration, err = meter.RegisterCallback(func(_ context.Context, observer otelmetric.Observer) error {
		n.mu.Lock()
		peers, routes := len(n.peers), len(n.table.entries)
		n.mu.Unlock()
		observer.ObserveInt64(metrics.PeersCount(), int64(peers), observeOptions...)
		observer.ObserveInt64(metrics.RoutesCount(), int64(routes), observeOptions...)
		observer.ObserveInt64(metrics.ForwardedCount(), n.forwarded.Load(), observeOptions...)
		return nil
	}, metrics.PeersCount(),
		metrics.RoutesCount(),
		metrics.ForwardedCount(),
	)
	return err
}
