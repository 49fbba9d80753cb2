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
	"sync"

	"go.uber.org/atomic"

	gerrors "github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/internal/queue"
	"github.com/actormesh/actormesh/protocol"
)

// Pipe is one end of an in-process link
type Pipe struct {
	in     *queue.Queue[*protocol.Packet]
	out    *queue.Queue[*protocol.Packet]
	codec  *protocol.Codec
	closed *atomic.Bool
	once   *sync.Once
}

// NewPipe returns the two connected ends of an in-process link.
// Closing either end closes both.
func NewPipe(opts ...Option) (*Pipe, *Pipe) {
	o := newOptions(opts...)
	left := queue.New[*protocol.Packet]()
	right := queue.New[*protocol.Packet]()
	closed := atomic.NewBool(false)
	once := new(sync.Once)
	return &Pipe{in: left, out: right, codec: o.codec, closed: closed, once: once},
		&Pipe{in: right, out: left, codec: o.codec, closed: closed, once: once}
}

// Send hands a copy of the packet to the other end
func (p *Pipe) Send(packet *protocol.Packet) error {
	if p.closed.Load() {
		return gerrors.ErrLinkClosed
	}

	copied, err := p.copy(packet)
	if err != nil {
		return err
	}

	if !p.out.Push(copied) {
		return gerrors.ErrLinkClosed
	}
	return nil
}

// Receive blocks until a packet arrives, the link is closed or ctx is done.
// Packets sent before the link was closed are still delivered.
func (p *Pipe) Receive(ctx context.Context) (*protocol.Packet, error) {
	packet, ok := p.in.Wait(ctx)
	if ok {
		return packet, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, gerrors.ErrLinkClosed
}

// Close closes both ends of the pipe
func (p *Pipe) Close() error {
	p.once.Do(func() {
		p.closed.Store(true)
		p.in.Close()
		p.out.Close()
	})
	return nil
}

func (p *Pipe) copy(packet *protocol.Packet) (*protocol.Packet, error) {
	if err := packet.Validate(); err != nil {
		return nil, err
	}
	if p.codec == nil {
		return packet.Clone(), nil
	}
	bytea, err := p.codec.Encode(packet)
	if err != nil {
		return nil, err
	}
	return p.codec.Decode(bytea)
}
