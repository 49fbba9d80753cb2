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
	"fmt"

	"github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/future"
	"github.com/actormesh/actormesh/internal/validation"
)

// Behavior processes the messages of one actor. Receive is never called
// concurrently for the same actor.
//
// Returning errors.ErrUnhandled reports the message as unhandled.
// Any other error is logged and does not stop the actor.
type Behavior interface {
	Receive(ctx *Context, msg *Message) error
}

// BehaviorFunc adapts a function to the Behavior interface.
type BehaviorFunc func(ctx *Context, msg *Message) error

// Receive calls f(ctx, msg)
func (f BehaviorFunc) Receive(ctx *Context, msg *Message) error {
	return f(ctx, msg)
}

// PostStopper is implemented by behaviors that release resources when their actor stops.
type PostStopper interface {
	PostStop(ctx *Context) error
}

// Resolver computes an actor address from its creation props.
type Resolver func(props any) string

// Fixed returns a Resolver that always yields address.
func Fixed(address string) Resolver {
	return func(any) string {
		return address
	}
}

// Definition is the immutable template actors are created from.
// Exactly one of Create and CreateAsync must be set.
type Definition struct {
	Address Resolver
	// Create builds the behavior synchronously. A returned error fails the creation.
	Create func(ctx *Context, props any) (Behavior, error)
	// CreateAsync builds the behavior in the background. Messages sent to the
	// actor meanwhile are buffered and delivered once the behavior is ready.
	CreateAsync func(ctx *Context, props any) future.Future[Behavior]
}

// Validate checks the definition shape
func (d Definition) Validate() error {
	if err := validation.New(validation.FailFast()).
		AddAssertion(d.Address != nil, "address resolver is required").
		AddAssertion((d.Create == nil) != (d.CreateAsync == nil), "exactly one of Create and CreateAsync must be set").
		Validate(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidDefinition, err)
	}
	return nil
}
