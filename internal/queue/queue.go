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

package queue

import (
	"context"
	"sync"
)

// minQueueLen is the smallest capacity that queue may have.
// Must be power of 2 for bitwise modulus: x % n == x & (n - 1).
const minQueueLen = 16

// Queue is a thread-safe FIFO backed by a growable ring buffer.
// Consumers can block on Wait until an item arrives or the queue is closed.
// reference: https://blog.dubbelboer.com/2015/04/25/go-faster-queue.html
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	nodes  []T
	head   int
	tail   int
	count  int
	closed bool
}

// New creates an instance of Queue
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		nodes: make([]T, minQueueLen),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds an item to the back of the queue.
// It returns false when the queue is closed, in which case the item is dropped.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if q.count == len(q.nodes) {
		q.resize(q.count << 1)
	}
	q.nodes[q.tail] = item
	q.tail = (q.tail + 1) & (len(q.nodes) - 1)
	q.count++
	q.cond.Signal()
	return true
}

// Pop removes the item at the front of the queue without blocking.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// Wait blocks until an item is available, the queue is closed or ctx is done.
// Items pushed before Close are still handed out; false means no item will come.
func (q *Queue[T]) Wait(ctx context.Context) (T, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	return q.pop()
}

// Close marks the queue as closed and wakes every waiting goroutine.
// Pending items remain available to Pop and Wait.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// IsClosed returns true when the queue has been closed
func (q *Queue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the current length of the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *Queue[T]) pop() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	item := q.nodes[q.head]
	q.nodes[q.head] = zero
	q.head = (q.head + 1) & (len(q.nodes) - 1)
	q.count--
	// shrink when the buffer is a quarter full
	if len(q.nodes) > minQueueLen && (q.count<<2) == len(q.nodes) {
		q.resize(len(q.nodes) >> 1)
	}
	return item, true
}

func (q *Queue[T]) resize(size int) {
	nodes := make([]T, size)
	if q.count > 0 {
		if q.tail > q.head {
			copy(nodes, q.nodes[q.head:q.tail])
		} else {
			n := copy(nodes, q.nodes[q.head:])
			copy(nodes[n:], q.nodes[:q.tail])
		}
	}
	q.tail = q.count & (size - 1)
	q.head = 0
	q.nodes = nodes
}
