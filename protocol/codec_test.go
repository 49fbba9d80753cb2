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

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actormesh/actormesh/actor"
	"github.com/actormesh/actormesh/errors"
)

type computation struct {
	Arg int
}

func TestCodec(t *testing.T) {
	t.Run("Handshake", func(t *testing.T) {
		codec := NewCodec()
		packet := &Packet{
			Kind:    Handshake,
			NodeID:  "node-a",
			Version: Version,
			Addresses: []Advertisement{
				{Address: "a", Distance: 1, Route: []string{"node-a"}},
				{Address: "b", Distance: 2, Route: []string{"node-c", "node-a"}},
			},
		}
		data, err := codec.Encode(packet)
		require.NoError(t, err)

		decoded, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, packet, decoded)
	})
	t.Run("Registered message body keeps its type", func(t *testing.T) {
		codec := NewCodec(computation{}, new(computation))
		packet := &Packet{
			Kind:  SendMessage,
			Route: []string{"a", "b"},
			Message: &actor.Message{
				To:      "computation:first",
				ReplyTo: "ask:1",
				Body:    computation{Arg: 100},
			},
		}
		data, err := codec.Encode(packet)
		require.NoError(t, err)
		decoded, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, packet, decoded)

		packet.Message.Body = &computation{Arg: 7}
		data, err = codec.Encode(packet)
		require.NoError(t, err)
		decoded, err = codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, &computation{Arg: 7}, decoded.Message.Body)
	})
	t.Run("Unregistered message body decodes generically", func(t *testing.T) {
		codec := NewCodec()
		packet := &Packet{
			Kind:  SendMessage,
			Route: []string{"a"},
			Message: &actor.Message{
				To:   "somewhere",
				Body: map[string]any{"arg": 100, "name": "x"},
			},
		}
		data, err := codec.Encode(packet)
		require.NoError(t, err)
		decoded, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"arg": int64(100), "name": "x"}, decoded.Message.Body)
	})
	t.Run("Body type unknown to the receiver", func(t *testing.T) {
		data, err := NewCodec(computation{}).Encode(&Packet{
			Kind:    SendMessage,
			Route:   []string{"a"},
			Message: &actor.Message{To: "x", Body: computation{Arg: 1}},
		})
		require.NoError(t, err)
		_, err = NewCodec().Decode(data)
		assert.ErrorIs(t, err, errors.ErrInvalidPacket)
	})
	t.Run("Invalid packets", func(t *testing.T) {
		codec := NewCodec()
		_, err := codec.Encode(&Packet{Kind: AddAddress, Address: "a"})
		assert.ErrorIs(t, err, errors.ErrInvalidPacket)
		_, err = codec.Encode(&Packet{Kind: Kind(42)})
		assert.ErrorIs(t, err, errors.ErrInvalidPacket)
		_, err = codec.Decode([]byte{0xff, 0x00})
		assert.ErrorIs(t, err, errors.ErrInvalidPacket)
	})
}

func TestPacket(t *testing.T) {
	t.Run("Clone does not share slices", func(t *testing.T) {
		packet := &Packet{
			Kind:    AddAddress,
			Address: "a",
			Route:   []string{"n1"},
		}
		clone := packet.Clone()
		clone.Route = append(clone.Route[:1], "n2")
		clone.Route[0] = "changed"
		assert.Equal(t, []string{"n1"}, packet.Route)

		handshake := &Packet{Kind: Handshake, NodeID: "n1", Addresses: []Advertisement{{Address: "a", Distance: 1, Route: []string{"n1"}}}}
		copied := handshake.Clone()
		copied.Addresses[0].Route[0] = "changed"
		assert.Equal(t, []string{"n1"}, handshake.Addresses[0].Route)
	})
	t.Run("Hops and Last", func(t *testing.T) {
		packet := &Packet{Kind: AddAddress, Address: "a", Route: []string{"n1", "n2"}}
		assert.Equal(t, 2, packet.Hops())
		assert.Equal(t, "n2", packet.Last())
		packet.Distance = 5
		assert.Equal(t, 5, packet.Hops())
		assert.Empty(t, (&Packet{}).Last())
	})
	t.Run("Kind names", func(t *testing.T) {
		assert.Equal(t, "HandshakeConfirm", HandshakeConfirm.String())
		assert.Equal(t, "Kind(9)", Kind(9).String())
	})
}

func TestCompatible(t *testing.T) {
	assert.NoError(t, Compatible(Version))
	assert.NoError(t, Compatible("1.4.2"))
	assert.ErrorIs(t, Compatible("2.0.0"), errors.ErrIncompatibleProtocol)
	assert.ErrorIs(t, Compatible("not-a-version"), errors.ErrIncompatibleProtocol)
}
