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

// Package protocol defines the packets exchanged by cluster nodes over a link
// and their binary encoding.
package protocol

import (
	"fmt"
	"slices"

	"github.com/actormesh/actormesh/actor"
)

// Kind identifies a packet type
type Kind uint8

const (
	// Handshake opens a link and advertises the sender's routing table
	Handshake Kind = iota + 1
	// HandshakeConfirm answers a Handshake with the receiver's routing table
	HandshakeConfirm
	// AddAddress announces an address reachable through the sender
	AddAddress
	// RemoveAddress withdraws an address previously announced
	RemoveAddress
	// SendMessage carries an actor message toward its recipient
	SendMessage
)

// String returns the packet kind name
func (k Kind) String() string {
	switch k {
	case Handshake:
		return "Handshake"
	case HandshakeConfirm:
		return "HandshakeConfirm"
	case AddAddress:
		return "AddAddress"
	case RemoveAddress:
		return "RemoveAddress"
	case SendMessage:
		return "SendMessage"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Advertisement is one known path to an address sent in a handshake.
// Route lists the nodes of the path, the advertising node last.
type Advertisement struct {
	Address  string   `cbor:"1,keyasint"`
	Distance int      `cbor:"2,keyasint,omitempty"`
	Route    []string `cbor:"3,keyasint,omitempty"`
}

// Packet is the unit exchanged over a link. Which fields are set depends on Kind:
//
//   - Handshake, HandshakeConfirm: NodeID, Version, Addresses
//   - AddAddress: Address, Route, Distance
//   - RemoveAddress: Address, Route
//   - SendMessage: Message, Route
type Packet struct {
	Kind      Kind
	NodeID    string
	Version   string
	Addresses []Advertisement
	Address   string
	// Route lists the nodes the packet went through, oldest first
	Route []string
	// Distance overrides the hop count derived from Route when positive
	Distance int
	Message  *actor.Message
}

// Validate checks that the fields required by the packet kind are set
func (p *Packet) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil packet", ErrInvalidPacket)
	}
	switch p.Kind {
	case Handshake, HandshakeConfirm:
		if p.NodeID == "" {
			return fmt.Errorf("%w: %s without node id", ErrInvalidPacket, p.Kind)
		}
	case AddAddress, RemoveAddress:
		if p.Address == "" || len(p.Route) == 0 {
			return fmt.Errorf("%w: %s without address or route", ErrInvalidPacket, p.Kind)
		}
	case SendMessage:
		if p.Message == nil || p.Message.To == "" || len(p.Route) == 0 {
			return fmt.Errorf("%w: %s without message or route", ErrInvalidPacket, p.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidPacket, p.Kind)
	}
	return nil
}

// Clone returns a copy of the packet that shares no slice with p.
// The message body is shared.
func (p *Packet) Clone() *Packet {
	clone := *p
	clone.Addresses = slices.Clone(p.Addresses)
	for i := range clone.Addresses {
		clone.Addresses[i].Route = slices.Clone(clone.Addresses[i].Route)
	}
	clone.Route = slices.Clone(p.Route)
	if p.Message != nil {
		msg := *p.Message
		clone.Message = &msg
	}
	return &clone
}

// Hops returns the distance carried by the packet: Distance when set, the route length otherwise.
func (p *Packet) Hops() int {
	if p.Distance > 0 {
		return p.Distance
	}
	return len(p.Route)
}

// Last returns the last node of the route, the one the packet came from
func (p *Packet) Last() string {
	if len(p.Route) == 0 {
		return ""
	}
	return p.Route[len(p.Route)-1]
}
