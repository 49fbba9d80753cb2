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

package testkit

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/actormesh/actormesh/actor"
)

// MessagesQueueMax is the number of messages a probe buffers
const MessagesQueueMax = 1000

// Probe is an actor driven by the test: it records what it receives and
// sends messages on behalf of the test.
type Probe interface {
	// ExpectMessage asserts that the next message received is body
	ExpectMessage(body any)
	// ExpectMessageWithin asserts that body is received within duration
	ExpectMessageWithin(duration time.Duration, body any)
	// ExpectNoMessage asserts that nothing is received within the default timeout
	ExpectNoMessage()
	// ExpectAnyMessage returns the next message received
	ExpectAnyMessage() any
	// ExpectAnyMessageWithin returns the next message received within duration
	ExpectAnyMessageWithin(duration time.Duration) any
	// ExpectMessageOfType asserts that the next message has the type of sample
	ExpectMessageOfType(sample any) any
	// Send sends body to address with the probe as reply address
	Send(address string, body any)
	// SendSync asks address and records the reply as a received message
	SendSync(address string, body any, timeout time.Duration)
	// Sender returns the reply address of the last message received
	Sender() string
	// Address returns the probe address
	Address() string
	// Stop stops the probe actor
	Stop()
}

type message struct {
	replyTo string
	body    any
}

type probeActor struct {
	messages chan message
}

func (x *probeActor) Receive(_ *actor.Context, msg *actor.Message) error {
	x.messages <- message{replyTo: msg.ReplyTo, body: msg.Body}
	return nil
}

type probe struct {
	pt             *testing.T
	system         *actor.System
	ref            *actor.Ref
	messages       chan message
	lastSender     string
	defaultTimeout time.Duration
}

var _ Probe = (*probe)(nil)

func newProbe(t *testing.T, system *actor.System, address string, timeout time.Duration) (*probe, error) {
	messages := make(chan message, MessagesQueueMax)
	behavior := &probeActor{messages: messages}
	ref, err := system.ActorOf(actor.Definition{
		Address: actor.Fixed(address),
		Create: func(*actor.Context, any) (actor.Behavior, error) {
			return behavior, nil
		},
	}, nil)
	if err != nil {
		return nil, err
	}
	return &probe{
		pt:             t,
		system:         system,
		ref:            ref,
		messages:       messages,
		defaultTimeout: timeout,
	}, nil
}

func (x *probe) ExpectMessage(body any) {
	x.expectMessage(x.defaultTimeout, body)
}

func (x *probe) ExpectMessageWithin(duration time.Duration, body any) {
	x.expectMessage(duration, body)
}

func (x *probe) ExpectNoMessage() {
	received, ok := x.receiveOne(x.defaultTimeout)
	require.False(x.pt, ok, fmt.Sprintf("received unexpected message %v", received))
}

func (x *probe) ExpectAnyMessage() any {
	return x.expectAnyMessage(x.defaultTimeout)
}

func (x *probe) ExpectAnyMessageWithin(duration time.Duration) any {
	return x.expectAnyMessage(duration)
}

func (x *probe) ExpectMessageOfType(sample any) any {
	received := x.expectAnyMessage(x.defaultTimeout)
	expected := reflect.TypeOf(sample)
	require.Equal(x.pt, expected, reflect.TypeOf(received), fmt.Sprintf("expected %v, found %T", expected, received))
	return received
}

func (x *probe) Send(address string, body any) {
	x.system.ActorFor(address).Send(body, actor.WithReplyTo(x.ref.Address()))
}

func (x *probe) SendSync(address string, body any, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	reply, err := x.system.ActorFor(address).Ask(ctx, body, actor.WithTimeout(timeout))
	require.NoError(x.pt, err)
	x.messages <- message{replyTo: reply.ReplyTo(), body: reply.Body()}
}

func (x *probe) Sender() string {
	return x.lastSender
}

func (x *probe) Address() string {
	return x.ref.Address()
}

func (x *probe) Stop() {
	require.True(x.pt, x.system.StopActor(x.ref.Address()), "probe %s is not running", x.ref.Address())
}

func (x *probe) receiveOne(duration time.Duration) (any, bool) {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case m := <-x.messages:
		x.lastSender = m.replyTo
		return m.body, true
	case <-timer.C:
		return nil, false
	}
}

func (x *probe) expectMessage(duration time.Duration, body any) {
	received, ok := x.receiveOne(duration)
	require.True(x.pt, ok, fmt.Sprintf("timeout (%v) during expectMessage while waiting for %v", duration, body))
	require.Equal(x.pt, body, received, fmt.Sprintf("expected %v, found %v", body, received))
}

func (x *probe) expectAnyMessage(duration time.Duration) any {
	received, ok := x.receiveOne(duration)
	require.True(x.pt, ok, fmt.Sprintf("timeout (%v) during expectAnyMessage while waiting", duration))
	return received
}
