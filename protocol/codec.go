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
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/actormesh/actormesh/actor"
	"github.com/actormesh/actormesh/internal/types"
)

var (
	encOptions = cbor.EncOptions{
		Sort:        cbor.SortNone,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeUnixDynamic,
	}
	decOptions = cbor.DecOptions{
		MaxNestedLevels: 64,
		IndefLength:     cbor.IndefLengthForbidden,
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		IntDec:          cbor.IntDecConvertSigned,
	}
)

// wirePacket is the encoded form of a Packet
type wirePacket struct {
	Kind      Kind            `cbor:"1,keyasint"`
	NodeID    string          `cbor:"2,keyasint,omitempty"`
	Version   string          `cbor:"3,keyasint,omitempty"`
	Addresses []Advertisement `cbor:"4,keyasint,omitempty"`
	Address   string          `cbor:"5,keyasint,omitempty"`
	Route     []string        `cbor:"6,keyasint,omitempty"`
	Distance  int             `cbor:"7,keyasint,omitempty"`
	Message   *wireMessage    `cbor:"8,keyasint,omitempty"`
}

type wireMessage struct {
	To      string `cbor:"1,keyasint"`
	ReplyTo string `cbor:"2,keyasint,omitempty"`
	// Type names the registered body type; empty for generic values
	Type string          `cbor:"3,keyasint,omitempty"`
	Body cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// Codec encodes packets with CBOR. Message bodies whose type has been
// registered are rebuilt with their concrete type on decode; other bodies
// decode as generic values (map[string]any, []any, int64, string...).
//
// A Codec is safe for concurrent use.
type Codec struct {
	registry types.Registry
	encMode  cbor.EncMode
	decMode  cbor.DecMode
}

// NewCodec creates a codec and registers the types of the given values.
func NewCodec(values ...any) *Codec {
	encMode, err := encOptions.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err := decOptions.DecMode()
	if err != nil {
		panic(err)
	}
	codec := &Codec{
		registry: types.NewRegistry(),
		encMode:  encMode,
		decMode:  decMode,
	}
	codec.Register(values...)
	return codec
}

// Register adds the types of the given values to the codec
func (c *Codec) Register(values ...any) {
	for _, v := range values {
		c.registry.Register(v)
	}
}

// Encode returns the binary form of packet
func (c *Codec) Encode(packet *Packet) ([]byte, error) {
	if err := packet.Validate(); err != nil {
		return nil, err
	}

	wire := &wirePacket{
		Kind:      packet.Kind,
		NodeID:    packet.NodeID,
		Version:   packet.Version,
		Addresses: packet.Addresses,
		Address:   packet.Address,
		Route:     packet.Route,
		Distance:  packet.Distance,
	}
	if packet.Message != nil {
		msg, err := c.encodeMessage(packet.Message)
		if err != nil {
			return nil, err
		}
		wire.Message = msg
	}

	data, err := c.encMode.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s packet: %w", packet.Kind, err)
	}
	return data, nil
}

// Decode rebuilds a packet from its binary form
func (c *Codec) Decode(data []byte) (*Packet, error) {
	wire := new(wirePacket)
	if err := c.decMode.Unmarshal(data, wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}

	packet := &Packet{
		Kind:      wire.Kind,
		NodeID:    wire.NodeID,
		Version:   wire.Version,
		Addresses: wire.Addresses,
		Address:   wire.Address,
		Route:     wire.Route,
		Distance:  wire.Distance,
	}
	if wire.Message != nil {
		msg, err := c.decodeMessage(wire.Message)
		if err != nil {
			return nil, err
		}
		packet.Message = msg
	}

	if err := packet.Validate(); err != nil {
		return nil, err
	}
	return packet, nil
}

func (c *Codec) encodeMessage(msg *actor.Message) (*wireMessage, error) {
	wire := &wireMessage{To: msg.To, ReplyTo: msg.ReplyTo}
	if msg.Body == nil {
		return wire, nil
	}
	if c.registry.Exists(msg.Body) {
		wire.Type = types.TypeName(msg.Body)
	}
	body, err := c.encMode.Marshal(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message body %T: %w", msg.Body, err)
	}
	wire.Body = body
	return wire, nil
}

func (c *Codec) decodeMessage(wire *wireMessage) (*actor.Message, error) {
	msg := &actor.Message{To: wire.To, ReplyTo: wire.ReplyTo}
	if len(wire.Body) == 0 {
		return msg, nil
	}

	if wire.Type == "" {
		var body any
		if err := c.decMode.Unmarshal(wire.Body, &body); err != nil {
			return nil, fmt.Errorf("%w: message body: %v", ErrInvalidPacket, err)
		}
		msg.Body = body
		return msg, nil
	}

	rtype, ok := c.registry.TypeOf(wire.Type)
	if !ok {
		return nil, fmt.Errorf("%w: message body type %s is not registered", ErrInvalidPacket, wire.Type)
	}
	ptr := reflect.New(rtype)
	if err := c.decMode.Unmarshal(wire.Body, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("%w: message body %s: %v", ErrInvalidPacket, wire.Type, err)
	}
	msg.Body = ptr.Elem().Interface()
	return msg, nil
}
