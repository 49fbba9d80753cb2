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
	"sync"
	"sync/atomic"
	"unsafe"
)

type node[T any] struct {
	value T
	next  *node[T]
}

// Mpsc is a lock-free Multi-Producer-Single-Consumer queue.
// reference: https://concurrencyfreaks.blogspot.com/2014/04/multi-producer-single-consumer-queue.html
type Mpsc[T any] struct {
	head   *node[T]
	tail   *node[T]
	length atomic.Int64
	lock   sync.Mutex
}

// NewMpsc creates an instance of Mpsc
func NewMpsc[T any]() *Mpsc[T] {
	item := new(node[T])
	return &Mpsc[T]{
		head: item,
		tail: item,
	}
}

// Push places the given value at the head of the queue. It is safe for
// concurrent producers and never blocks.
func (q *Mpsc[T]) Push(value T) {
	tnode := &node[T]{value: value}
	previousHead := (*node[T])(atomic.SwapPointer((*unsafe.Pointer)(unsafe.Pointer(&q.head)), unsafe.Pointer(tnode)))
	atomic.StorePointer((*unsafe.Pointer)(unsafe.Pointer(&previousHead.next)), unsafe.Pointer(tnode))
	q.length.Add(1)
}

// Pop takes the value at the tail of the queue.
// Returns false when the queue is empty. Must be called from a single consumer.
func (q *Mpsc[T]) Pop() (T, bool) {
	var zero T
	q.lock.Lock()
	next := (*node[T])(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&q.tail.next))))
	if next == nil {
		q.lock.Unlock()
		return zero, false
	}
	q.tail = next
	q.lock.Unlock()

	value := next.value
	next.value = zero
	q.length.Add(-1)
	return value, true
}

// Len returns the queue length
func (q *Mpsc[T]) Len() int64 {
	return q.length.Load()
}

// IsEmpty returns true when the queue is empty
func (q *Mpsc[T]) IsEmpty() bool {
	q.lock.Lock()
	tail := q.tail
	q.lock.Unlock()
	return atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&tail.next))) == nil
}
