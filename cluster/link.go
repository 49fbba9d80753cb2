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

package cluster

import (
	"context"

	"github.com/actormesh/actormesh/protocol"
)

// Link is a duplex, ordered packet channel to one peer node.
//
// Send must not block: implementations queue outgoing packets. Receive blocks
// until a packet arrives, the link is closed or ctx is done. Once the link is
// closed, both return errors.ErrLinkClosed.
type Link interface {
	Send(packet *protocol.Packet) error
	Receive(ctx context.Context) (*protocol.Packet, error)
	Close() error
}

// linkState tracks the handshake of a link
type linkState int

const (
	unconnected linkState = iota
	handshakePending
	connected
	closed
)

func (s linkState) String() string {
	switch s {
	case unconnected:
		return "Unconnected"
	case handshakePending:
		return "HandshakePending"
	case connected:
		return "Connected"
	default:
		return "Closed"
	}
}

// peerLink is a link attached to a node together with its handshake state.
// Its fields are guarded by the node mutex.
type peerLink struct {
	link  Link
	state linkState
	peer  string
	timer interface{ Stop() bool }
	// pending holds topology packets produced before the link was connected
	pending []*protocol.Packet
}
