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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateAddress is returned when an actor is created under an address
	// that is already registered in the actor system.
	ErrDuplicateAddress = errors.New("address is already registered")

	// ErrAmbiguity is returned when a single or optional dependency lookup
	// matches more than one provisioning.
	ErrAmbiguity = errors.New("dependency resolution is ambiguous")

	// ErrNotFound is returned when a single dependency lookup matches nothing.
	ErrNotFound = errors.New("dependency not found")

	// ErrRequestTimeout indicates that an Ask message timed out while waiting for a response.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrInvalidState is returned when an operation that requires a message
	// scope is invoked outside of message handling.
	ErrInvalidState = errors.New("operation is only valid while handling a message")

	// ErrUnhandled is returned by a behavior to signal that it does not handle the received message.
	ErrUnhandled = errors.New("unhandled message")

	// ErrInvalidProvisioning is returned when a provisioning carries neither or both of a value and a factory.
	ErrInvalidProvisioning = errors.New("provisioning must set exactly one of value or factory")

	// ErrInvalidDefinition is returned when an actor definition is malformed.
	ErrInvalidDefinition = errors.New("definition must set an address and exactly one of create or create async")

	// ErrMailboxFull is returned when a bounded mailbox has reached its capacity.
	ErrMailboxFull = errors.New("mailbox is full")

	// ErrMailboxDisposed is returned when operations are attempted on a disposed mailbox.
	ErrMailboxDisposed = errors.New("mailbox has been disposed")

	// ErrSystemStopped is returned when the actor system has been shut down.
	ErrSystemStopped = errors.New("actor system is stopped")

	// ErrInvalidSystemName is returned when the actor system name contains invalid characters.
	ErrInvalidSystemName = errors.New("invalid actor system name, must contain only word characters (i.e. [a-zA-Z0-9] plus non-leading '-' or '_')")

	// ErrLinkClosed is returned when a packet is sent on, or read from, a closed link.
	ErrLinkClosed = errors.New("link is closed")

	// ErrIncompatibleProtocol is returned when a peer advertises a protocol version this node does not accept.
	ErrIncompatibleProtocol = errors.New("incompatible protocol version")

	// ErrInvalidPacket is returned when a cluster packet cannot be decoded or is malformed.
	ErrInvalidPacket = errors.New("invalid packet")

	// ErrNodeClosed is returned when a link is attached to a node that has been closed.
	ErrNodeClosed = errors.New("node is closed")
)

// CreateFailure wraps the error returned by an actor constructor.
type CreateFailure struct {
	address string
	err     error
}

// NewCreateFailure creates an instance of CreateFailure
func NewCreateFailure(address string, err error) *CreateFailure {
	return &CreateFailure{address: address, err: err}
}

// Error implements the standard error interface
func (e *CreateFailure) Error() string {
	return fmt.Sprintf("failed to create actor %s: %v", e.address, e.err)
}

// Unwrap returns the constructor error
func (e *CreateFailure) Unwrap() error {
	return e.err
}

// Address returns the address of the actor that failed to start
func (e *CreateFailure) Address() string {
	return e.address
}

// PanicError wraps a value recovered from a panicking message handler.
type PanicError struct {
	err error
}

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err: err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

// Unwrap returns the recovered error
func (e *PanicError) Unwrap() error {
	return e.err
}
