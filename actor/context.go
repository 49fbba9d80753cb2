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
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/actormesh/actormesh/dependency"
	"github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/log"
)

// messageScope is the state attached to a context while one message is handled.
type messageScope struct {
	message   *Message
	unhandled atomic.Bool
}

// Context is handed to an actor's constructor and behavior. It exposes the
// actor identity, its dependency scope and the message being handled.
type Context struct {
	address   string
	system    *System
	container *dependency.Container
	logger    log.Logger
	ctx       context.Context

	scope         atomic.Pointer[messageScope]
	stopRequested atomic.Bool

	// mu orders Stop against the end of construction
	mu           sync.Mutex
	constructing bool
}

func newContext(ctx context.Context, system *System, address string, container *dependency.Container) *Context {
	return &Context{
		address:      address,
		system:       system,
		container:    container,
		logger:       system.logger.With("actor", address),
		ctx:          ctx,
		constructing: true,
	}
}

// Self returns a reference to the actor owning this context
func (c *Context) Self() *Ref {
	return c.ActorFor(c.address)
}

// Address returns the actor address
func (c *Context) Address() string {
	return c.address
}

// System returns the actor system the actor belongs to
func (c *Context) System() *System {
	return c.system
}

// Dependencies returns the dependency scope of the actor
func (c *Context) Dependencies() *dependency.Container {
	return c.container
}

// Context returns the context.Context bound to the actor lifetime
func (c *Context) Context() context.Context {
	return c.ctx
}

// ActorOf creates an actor whose dependency scope is nested in this one.
func (c *Context) ActorOf(definition Definition, props any) (*Ref, error) {
	return c.system.createActor(c.container, definition, props)
}

// ActorFor returns a reference to address. The address may be local or remote.
func (c *Context) ActorFor(address string) *Ref {
	return newRef(c.system, address, c.container)
}

// Message returns the message being handled, nil outside of a handler
func (c *Context) Message() *Message {
	if scope := c.scope.Load(); scope != nil {
		return scope.message
	}
	return nil
}

// ReplyTo returns the reply address of the message being handled
func (c *Context) ReplyTo() string {
	if msg := c.Message(); msg != nil {
		return msg.ReplyTo
	}
	return ""
}

// Reply sends body to the reply address of the message being handled.
func (c *Context) Reply(body any) error {
	msg := c.Message()
	if msg == nil {
		return errors.ErrInvalidState
	}
	if msg.ReplyTo == "" {
		return fmt.Errorf("%w: message to %s has no reply address", errors.ErrInvalidState, c.address)
	}
	c.system.SendMessage(&Message{To: msg.ReplyTo, Body: body, ReplyTo: c.address})
	return nil
}

// Unhandled reports the message being handled as unhandled, together with
// the caller stack. The returned errors.ErrUnhandled can be returned by the behavior.
// Outside of a handler it returns errors.ErrInvalidState.
func (c *Context) Unhandled() error {
	scope := c.scope.Load()
	if scope == nil {
		return errors.ErrInvalidState
	}
	if scope.unhandled.CompareAndSwap(false, true) {
		c.system.unhandled(c.address, scope.message, string(debug.Stack()))
	}
	return errors.ErrUnhandled
}

// Stop stops the actor. Called from a constructor or a handler, it takes
// effect once the actor is registered or the handler returns.
func (c *Context) Stop() {
	c.mu.Lock()
	if c.constructing || c.scope.Load() != nil {
		c.stopRequested.Store(true)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.system.StopActor(c.address)
}

// constructed ends the construction phase and reports whether a stop was requested during it.
func (c *Context) constructed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.constructing = false
	return c.stopRequested.Load()
}

// Log publishes a LogEvent and writes the values at debug level.
func (c *Context) Log(values ...any) {
	c.system.publish(&LogEvent{Source: c.address, Messages: values})
	c.logger.Debug(values...)
}

// Logger returns the logger of the actor
func (c *Context) Logger() log.Logger {
	return c.logger
}

func (c *Context) enter(msg *Message) *messageScope {
	scope := &messageScope{message: msg}
	c.scope.Store(scope)
	return scope
}

func (c *Context) leave() {
	c.scope.Store(nil)
}
