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

// Package future provides a single-assignment value that becomes available
// at some point, possibly from another goroutine.
package future

import (
	"context"
	"sync"
)

// Future represents a value which may or may not currently be available,
// but will be available at some point in the future, or an error if that value
// could not be made available.
//
// A Future can be awaited any number of times from any number of goroutines;
// every caller observes the same outcome once it is settled.
//
// Example usage:
//
//	f := future.New(func() (int, error) {
//	    return compute(), nil
//	})
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//
//	result, err := f.Await(ctx)
type Future[T any] interface {
	// Await blocks until the Future is completed or ctx is canceled and
	// returns either a result or an error. A canceled ctx does not settle the Future.
	Await(ctx context.Context) (T, error)
	// Done returns a channel that is closed once the Future is settled.
	Done() <-chan struct{}
}

// New creates a Future that runs task in its own goroutine and settles with its outcome.
func New[T any](task func() (T, error)) Future[T] {
	p := NewPromise[T]()
	go func() {
		value, err := task()
		if err != nil {
			p.Failure(err)
			return
		}
		p.Success(value)
	}()
	return p.Future()
}

// Completed returns a Future already settled with value.
func Completed[T any](value T) Future[T] {
	p := NewPromise[T]()
	p.Success(value)
	return p.Future()
}

// Failed returns a Future already settled with err.
func Failed[T any](err error) Future[T] {
	p := NewPromise[T]()
	p.Failure(err)
	return p.Future()
}

// Promise is the write side of a Future. Only the first Success or Failure counts.
type Promise[T any] struct {
	once   sync.Once
	future *future[T]
}

// NewPromise returns an unsettled Promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{
		future: &future[T]{done: make(chan struct{})},
	}
}

// Success completes the underlying Future with value.
func (p *Promise[T]) Success(value T) {
	p.once.Do(func() {
		p.future.value = value
		close(p.future.done)
	})
}

// Failure fails the underlying Future with err.
func (p *Promise[T]) Failure(err error) {
	p.once.Do(func() {
		p.future.err = err
		close(p.future.done)
	})
}

// Future returns the underlying Future.
func (p *Promise[T]) Future() Future[T] {
	return p.future
}

type future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

var _ Future[any] = (*future[any])(nil)

// Await blocks until the Future is completed or ctx is canceled.
func (x *future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-x.done:
		return x.value, x.err
	default:
	}

	select {
	case <-x.done:
		return x.value, x.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed once the Future is settled.
func (x *future[T]) Done() <-chan struct{} {
	return x.done
}
