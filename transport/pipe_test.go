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

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/actormesh/actormesh/actor"
	"github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/log"
	"github.com/actormesh/actormesh/protocol"
)

type ping struct {
	Count int
}

func handshake(id string) *protocol.Packet {
	return &protocol.Packet{
		Kind:      protocol.Handshake,
		NodeID:    id,
		Version:   protocol.Version,
		Addresses: []protocol.Advertisement{{Address: "echo", Distance: 1}},
	}
}

func message(to string, body any) *protocol.Packet {
	return &protocol.Packet{
		Kind:    protocol.SendMessage,
		Route:   []string{"node-a"},
		Message: &actor.Message{To: to, Body: body},
	}
}

func receive(t *testing.T, link interface {
	Receive(ctx context.Context) (*protocol.Packet, error)
}) *protocol.Packet {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	packet, err := link.Receive(ctx)
	require.NoError(t, err)
	return packet
}

func TestPipe(t *testing.T) {
	t.Run("Packets cross in order", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		left, right := NewPipe()
		defer left.Close()

		require.NoError(t, left.Send(handshake("node-a")))
		for i := range 3 {
			require.NoError(t, left.Send(message("echo", ping{Count: i})))
		}
		require.NoError(t, right.Send(handshake("node-b")))

		assert.Equal(t, handshake("node-a"), receive(t, right))
		for i := range 3 {
			assert.Equal(t, ping{Count: i}, receive(t, right).Message.Body)
		}
		assert.Equal(t, "node-b", receive(t, left).NodeID)
	})
	t.Run("Sent packets are copied", func(t *testing.T) {
		left, right := NewPipe()
		defer right.Close()

		packet := message("echo", "hello")
		require.NoError(t, left.Send(packet))
		packet.Route[0] = "mutated"
		packet.Message.To = "mutated"

		received := receive(t, right)
		assert.Equal(t, []string{"node-a"}, received.Route)
		assert.Equal(t, "echo", received.Message.To)
	})
	t.Run("With a codec packets are round tripped", func(t *testing.T) {
		left, right := NewPipe(WithCodec(protocol.NewCodec(ping{})))
		defer left.Close()

		require.NoError(t, left.Send(message("echo", ping{Count: 7})))
		assert.Equal(t, ping{Count: 7}, receive(t, right).Message.Body)

		err := left.Send(message("echo", struct{ Unknown chan int }{}))
		assert.Error(t, err)
		err = left.Send(&protocol.Packet{Kind: protocol.AddAddress})
		assert.ErrorIs(t, err, errors.ErrInvalidPacket)
	})
	t.Run("Close closes both ends after draining", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		left, right := NewPipe()
		require.NoError(t, left.Send(handshake("node-a")))
		require.NoError(t, right.Close())
		require.NoError(t, left.Close())

		assert.ErrorIs(t, left.Send(handshake("node-a")), errors.ErrLinkClosed)
		assert.ErrorIs(t, right.Send(handshake("node-b")), errors.ErrLinkClosed)

		assert.Equal(t, "node-a", receive(t, right).NodeID)
		_, err := right.Receive(context.Background())
		assert.ErrorIs(t, err, errors.ErrLinkClosed)
		_, err = left.Receive(context.Background())
		assert.ErrorIs(t, err, errors.ErrLinkClosed)
	})
	t.Run("Receive honours the context", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		left, right := NewPipe(WithLogger(log.DiscardLogger))
		defer left.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := right.Receive(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
