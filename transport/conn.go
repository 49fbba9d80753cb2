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
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/atomic"

	gerrors "github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/internal/queue"
	"github.com/actormesh/actormesh/log"
	"github.com/actormesh/actormesh/protocol"
)

// ErrFrameTooLarge is returned when a frame exceeds the configured maximum size
var ErrFrameTooLarge = errors.New("frame too large")

// Conn is a link over a stream connection. Every packet travels as one frame:
// a big-endian uint32 length followed by the CBOR encoded packet.
//
// Send never blocks: packets are queued and written by a dedicated goroutine.
type Conn struct {
	raw          net.Conn
	conn         net.Conn
	codec        *protocol.Codec
	logger       log.Logger
	maxFrameSize int

	in  *queue.Queue[*protocol.Packet]
	out *queue.Queue[*protocol.Packet]

	cause  *atomic.Error
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewConn starts a link over an established connection.
// The configured ConnWrappers are applied to it.
func NewConn(conn net.Conn, opts ...Option) (*Conn, error) {
	o := newOptions(opts...)
	wrapped, err := wrap(conn, o.wrappers)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	link := &Conn{
		raw:          conn,
		conn:         wrapped,
		codec:        o.codecOrDefault(),
		logger:       o.logger,
		maxFrameSize: o.maxFrameSize,
		in:           queue.New[*protocol.Packet](),
		out:          queue.New[*protocol.Packet](),
		cause:        atomic.NewError(nil),
		ctx:          ctx,
		cancel:       cancel,
	}

	link.wg.Add(2)
	go link.readLoop()
	go link.writeLoop()
	return link, nil
}

// LocalAddr returns the local network address
func (c *Conn) LocalAddr() net.Addr {
	return c.raw.LocalAddr()
}

// RemoteAddr returns the remote network address
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// Send queues the packet for writing
func (c *Conn) Send(packet *protocol.Packet) error {
	if err := packet.Validate(); err != nil {
		return err
	}
	if !c.out.Push(packet.Clone()) {
		return c.closedError()
	}
	return nil
}

// Receive blocks until a packet arrives, the link is closed or ctx is done
func (c *Conn) Receive(ctx context.Context) (*protocol.Packet, error) {
	packet, ok := c.in.Wait(ctx)
	if ok {
		return packet, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, c.closedError()
}

// Close closes the connection and waits for the read and write loops to return
func (c *Conn) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.out.Close()
		_ = c.raw.Close()
		c.wg.Wait()
		if c.conn != c.raw {
			if err := c.conn.Close(); err != nil {
				c.logger.Debugf("closing wrapped connection: %v", err)
			}
		}
		c.in.Close()
	})
	return nil
}

func (c *Conn) closedError() error {
	if cause := c.cause.Load(); cause != nil {
		return fmt.Errorf("%w: %w", gerrors.ErrLinkClosed, cause)
	}
	return gerrors.ErrLinkClosed
}

func (c *Conn) fail(err error) {
	if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
		if c.cause.Load() == nil {
			c.cause.Store(err)
		}
	}
	c.in.Close()
	c.out.Close()
	_ = c.raw.Close()
}

func (c *Conn) readLoop() {
	defer c.wg.Done()
	reader := bufio.NewReader(c.conn)
	header := make([]byte, 4)
	for {
		if _, err := io.ReadFull(reader, header); err != nil {
			c.fail(err)
			return
		}

		size := binary.BigEndian.Uint32(header)
		if int64(size) > int64(c.maxFrameSize) {
			c.fail(fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size))
			return
		}

		frame := make([]byte, size)
		if _, err := io.ReadFull(reader, frame); err != nil {
			c.fail(err)
			return
		}

		packet, err := c.codec.Decode(frame)
		if err != nil {
			c.logger.Warnf("dropping frame from %s: %v", c.raw.RemoteAddr(), err)
			continue
		}
		c.in.Push(packet)
	}
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()
	writer := bufio.NewWriter(c.conn)
	for {
		packet, ok := c.out.Wait(c.ctx)
		if !ok {
			return
		}

		frame, err := c.codec.Encode(packet)
		if err != nil {
			c.logger.Errorf("dropping %s packet: %v", packet.Kind, err)
			continue
		}
		if len(frame) > c.maxFrameSize {
			c.logger.Errorf("dropping %s packet: %v", packet.Kind, ErrFrameTooLarge)
			continue
		}

		header := make([]byte, 4)
		binary.BigEndian.PutUint32(header, uint32(len(frame)))
		if _, err := writer.Write(header); err != nil {
			c.fail(err)
			return
		}
		if _, err := writer.Write(frame); err != nil {
			c.fail(err)
			return
		}

		// batch the frames already queued into a single write
		if c.out.Len() == 0 {
			if err := writer.Flush(); err != nil {
				c.fail(err)
				return
			}
		}
	}
}
