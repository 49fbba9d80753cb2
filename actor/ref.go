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
	"time"

	"github.com/google/uuid"

	"github.com/actormesh/actormesh/dependency"
	"github.com/actormesh/actormesh/errors"
)

// Ref addresses an actor, local or remote. A Ref stays valid after the actor
// stops; messages sent to it are then reported as undelivered.
type Ref struct {
	system  *System
	address string
	// scope is the dependency scope of whoever obtained the reference
	scope *dependency.Container
}

func newRef(system *System, address string, scope *dependency.Container) *Ref {
	return &Ref{
		system:  system,
		address: address,
		scope:   scope,
	}
}

// Address returns the address the reference points to
func (r *Ref) Address() string {
	return r.address
}

// String returns the address
func (r *Ref) String() string {
	return r.address
}

// Send delivers body without waiting. It never fails; messages that cannot be
// delivered are published as UndeliveredMessage events.
func (r *Ref) Send(body any, opts ...SendOption) {
	config := new(sendConfig)
	for _, opt := range opts {
		opt.Apply(config)
	}
	r.system.SendMessage(&Message{To: r.address, Body: body, ReplyTo: config.replyTo})
}

// Ask sends body and waits for the first message sent back to the reply address.
//
// A transient actor receives the reply. It is registered beneath the scope of the
// reference and is stopped whatever the outcome. Ask fails with
// errors.ErrRequestTimeout when no reply arrives in time and with the
// context error when ctx is done first.
func (r *Ref) Ask(ctx context.Context, body any, opts ...AskOption) (*Reply, error) {
	config := &askConfig{
		timeout: r.system.askTimeout,
		id:      "ask:" + uuid.NewString(),
	}
	for _, opt := range opts {
		opt.Apply(config)
	}

	replies := make(chan *Message, 1)
	receiver := Definition{
		Address: Fixed(config.id),
		Create: func(*Context, any) (Behavior, error) {
			return BehaviorFunc(func(_ *Context, msg *Message) error {
				select {
				case replies <- msg:
				default:
				}
				return nil
			}), nil
		},
	}
	if _, err := r.system.createActor(r.scope, receiver, nil); err != nil {
		return nil, err
	}
	defer r.system.StopActor(config.id)

	timer := time.NewTimer(config.timeout)
	defer timer.Stop()

	r.system.SendMessage(&Message{To: r.address, Body: body, ReplyTo: config.id})

	select {
	case msg := <-replies:
		return &Reply{system: r.system, message: msg}, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: no reply from %s after %s", errors.ErrRequestTimeout, r.address, config.timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("no reply from %s: %w", r.address, ctx.Err())
	}
}

// Reply is the answer received by Ask.
type Reply struct {
	system  *System
	message *Message
}

// Body returns the reply payload
func (r *Reply) Body() any {
	return r.message.Body
}

// ReplyTo returns the address the replier expects an answer on, if any
func (r *Reply) ReplyTo() string {
	return r.message.ReplyTo
}

// Message returns the raw reply message
func (r *Reply) Message() *Message {
	return r.message
}

// Respond answers the replier when it asked for a follow-up.
func (r *Reply) Respond(body any) error {
	if r.message.ReplyTo == "" {
		return fmt.Errorf("%w: reply has no reply address", errors.ErrInvalidState)
	}
	r.system.SendMessage(&Message{To: r.message.ReplyTo, Body: body})
	return nil
}

// Unhandled reports the reply as unhandled by the asker.
func (r *Reply) Unhandled() {
	r.system.unhandled(r.message.To, r.message, "")
}
