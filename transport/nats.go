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

package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"

	gerrors "github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/internal/queue"
	"github.com/actormesh/actormesh/log"
	"github.com/actormesh/actormesh/protocol"
)

// NatsSubjectPrefix prefixes the subjects used by NATS links
const NatsSubjectPrefix = "actormesh.link"

// ConnectNats connects to a NATS server, retrying with an exponential backoff
func ConnectNats(ctx context.Context, url, name string, opts ...Option) (*nats.Conn, error) {
	o := newOptions(opts...)

	natsOpts := nats.GetDefaultOptions()
	natsOpts.Url = url
	natsOpts.Name = name
	natsOpts.Timeout = o.dialTimeout
	natsOpts.ReconnectWait = 2 * time.Second
	natsOpts.MaxReconnect = -1

	var conn *nats.Conn
	retrier := retry.NewRetrier(o.dialRetries, 100*time.Millisecond, o.retryDelay)
	err := retrier.RunContext(ctx, func(_ context.Context) error {
		var err error
		conn, err = natsOpts.Connect()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats server %s: %w", url, err)
	}
	return conn, nil
}

// Nats is a link between two endpoints sharing a NATS server. Packets from
// local to remote are published on NatsSubjectPrefix.local.remote.
//
// Core NATS does not keep messages for absent subscribers: both ends must be
// created before either is attached to a node.
type Nats struct {
	conn    *nats.Conn
	outbox  string
	sub     *nats.Subscription
	codec   *protocol.Codec
	logger  log.Logger
	in      *queue.Queue[*protocol.Packet]
	closed  *atomic.Bool
	closing sync.Once
}

// NewNats subscribes to the packets sent by remote and returns the link.
// The NATS connection is not owned by the link.
func NewNats(conn *nats.Conn, local, remote string, opts ...Option) (*Nats, error) {
	o := newOptions(opts...)
	link := &Nats{
		conn:   conn,
		outbox: natsSubject(local, remote),
		codec:  o.codecOrDefault(),
		logger: o.logger,
		in:     queue.New[*protocol.Packet](),
		closed: atomic.NewBool(false),
	}

	sub, err := conn.Subscribe(natsSubject(remote, local), link.handle)
	if err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	link.sub = sub
	return link, nil
}

// Send publishes the packet to the remote end
func (n *Nats) Send(packet *protocol.Packet) error {
	if n.closed.Load() {
		return gerrors.ErrLinkClosed
	}
	data, err := n.codec.Encode(packet)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.outbox, data)
}

// Receive blocks until a packet arrives, the link is closed or ctx is done
func (n *Nats) Receive(ctx context.Context) (*protocol.Packet, error) {
	packet, ok := n.in.Wait(ctx)
	if ok {
		return packet, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, gerrors.ErrLinkClosed
}

// Close notifies the remote end and stops receiving
func (n *Nats) Close() error {
	var err error
	n.closing.Do(func() {
		n.closed.Store(true)
		if !n.conn.IsClosed() {
			// an empty payload tells the remote end the link is gone
			if perr := n.conn.Publish(n.outbox, nil); perr != nil {
				n.logger.Debugf("failed to notify %s: %v", n.outbox, perr)
			}
		}
		if n.sub.IsValid() {
			err = n.sub.Unsubscribe()
		}
		n.in.Close()
	})
	return err
}

func (n *Nats) handle(msg *nats.Msg) {
	if len(msg.Data) == 0 {
		n.closed.Store(true)
		n.in.Close()
		return
	}

	packet, err := n.codec.Decode(msg.Data)
	if err != nil {
		n.logger.Warnf("dropping packet on %s: %v", msg.Subject, err)
		return
	}
	n.in.Push(packet)
}

func natsSubject(from, to string) string {
	return fmt.Sprintf("%s.%s.%s", NatsSubjectPrefix, from, to)
}
