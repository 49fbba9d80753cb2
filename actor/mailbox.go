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

package actor

import (
	gods "github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"

	"github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/internal/queue"
)

// Mailbox defines the contract for an actor's message queue.
//
//   - Enqueue is called by many producers and must never block. Bounded
//     implementations return errors.ErrMailboxFull instead of waiting.
//   - Dequeue is called by a single consumer and returns nil when empty.
//   - After Dispose, Enqueue returns errors.ErrMailboxDisposed and Dequeue returns nil.
type Mailbox interface {
	// Enqueue pushes a message into the mailbox.
	Enqueue(msg *Message) error
	// Dequeue fetches the next message, nil when the mailbox is empty.
	Dequeue() *Message
	// IsEmpty reports whether the mailbox currently has no messages.
	IsEmpty() bool
	// Len returns a snapshot of the number of messages in the mailbox.
	Len() int64
	// Dispose releases the mailbox. It must not be used afterwards.
	Dispose()
}

// UnboundedMailbox is the default lock-free FIFO mailbox.
type UnboundedMailbox struct {
	underlying *queue.Mpsc[*Message]
	disposed   *atomic.Bool
}

var _ Mailbox = (*UnboundedMailbox)(nil)

// NewUnboundedMailbox creates an instance of UnboundedMailbox
func NewUnboundedMailbox() *UnboundedMailbox {
	return &UnboundedMailbox{
		underlying: queue.NewMpsc[*Message](),
		disposed:   atomic.NewBool(false),
	}
}

// Enqueue places the given message in the mailbox
func (m *UnboundedMailbox) Enqueue(msg *Message) error {
	if m.disposed.Load() {
		return errors.ErrMailboxDisposed
	}
	m.underlying.Push(msg)
	return nil
}

// Dequeue takes the next message from the mailbox
func (m *UnboundedMailbox) Dequeue() *Message {
	if m.disposed.Load() {
		return nil
	}
	msg, ok := m.underlying.Pop()
	if !ok {
		return nil
	}
	return msg
}

// IsEmpty returns true when the mailbox is empty
func (m *UnboundedMailbox) IsEmpty() bool {
	return m.underlying.IsEmpty()
}

// Len returns mailbox length
func (m *UnboundedMailbox) Len() int64 {
	return m.underlying.Len()
}

// Dispose will dispose of this queue and free any blocked threads
// in the Enqueue and/or Dequeue methods.
func (m *UnboundedMailbox) Dispose() {
	m.disposed.Store(true)
}

// BoundedMailbox is a fixed-capacity FIFO mailbox backed by a ring buffer.
// Enqueue fails with errors.ErrMailboxFull rather than blocking when full.
type BoundedMailbox struct {
	underlying *gods.RingBuffer
}

var _ Mailbox = (*BoundedMailbox)(nil)

// minBoundedCapacity is the smallest ring size able to tell full from empty
const minBoundedCapacity = 2

// NewBoundedMailbox creates a bounded mailbox. The capacity is rounded up to
// the next power of two, and to at least two.
func NewBoundedMailbox(capacity int) *BoundedMailbox {
	if capacity < minBoundedCapacity {
		capacity = minBoundedCapacity
	}
	return &BoundedMailbox{
		underlying: gods.NewRingBuffer(uint64(capacity)),
	}
}

// Enqueue inserts a message into the mailbox
func (m *BoundedMailbox) Enqueue(msg *Message) error {
	ok, err := m.underlying.Offer(msg)
	if err != nil {
		return errors.ErrMailboxDisposed
	}
	if !ok {
		return errors.ErrMailboxFull
	}
	return nil
}

// Dequeue removes and returns the next message from the mailbox
func (m *BoundedMailbox) Dequeue() *Message {
	if m.underlying.IsDisposed() || m.underlying.Len() == 0 {
		return nil
	}
	item, err := m.underlying.Get()
	if err != nil {
		return nil
	}
	msg, _ := item.(*Message)
	return msg
}

// IsEmpty reports whether the mailbox currently has no messages.
func (m *BoundedMailbox) IsEmpty() bool {
	return m.underlying.Len() == 0
}

// Len returns the current number of messages in the mailbox.
func (m *BoundedMailbox) Len() int64 {
	return int64(m.underlying.Len())
}

// Dispose releases the underlying ring buffer
func (m *BoundedMailbox) Dispose() {
	m.underlying.Dispose()
}
