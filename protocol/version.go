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

	"github.com/Masterminds/semver/v3"

	"github.com/actormesh/actormesh/errors"
)

// ErrInvalidPacket is returned for malformed or undecodable packets
var ErrInvalidPacket = errors.ErrInvalidPacket

// Version is the protocol version advertised in handshakes
const Version = "1.0.0"

// compatibility accepts peers speaking the same major version
var compatibility = mustConstraint("^1.0.0")

func mustConstraint(expr string) *semver.Constraints {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// Compatible returns nil when a peer advertising version can join this node.
func Compatible(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", errors.ErrIncompatibleProtocol, version, err)
	}
	if !compatibility.Check(v) {
		return fmt.Errorf("%w: peer speaks %s, this node speaks %s", errors.ErrIncompatibleProtocol, v, Version)
	}
	return nil
}
