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

// EventsTopic is the event stream topic the runtime publishes its events on.
const EventsTopic = "actormesh.events"

// ActorCreated is published when an actor has been registered.
type ActorCreated struct {
	Address string
}

// ActorDestroyed is published when an actor has been stopped.
type ActorDestroyed struct {
	Address string
}

// MessageSent is published when a message has been handed to a local
// mailbox or forwarded to another node.
type MessageSent struct {
	Message *Message
}

// UndeliveredMessage is published when a message could not be delivered.
type UndeliveredMessage struct {
	Message *Message
	Reason  error
}

// UnhandledMessage is published when a behavior reports a message as unhandled.
type UnhandledMessage struct {
	// Source is the address of the actor that did not handle the message
	Source  string
	Message *Message
	// Stack is the call stack of the report, empty when the behavior only
	// returned errors.ErrUnhandled.
	Stack string
}

// LogEvent is published by Context.Log.
type LogEvent struct {
	Source   string
	Messages []any
}
