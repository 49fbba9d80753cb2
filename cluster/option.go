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
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/actormesh/actormesh/log"
)

const (
	// DefaultHandshakeJitterMin is the lower bound of the delay before a node sends its handshake
	DefaultHandshakeJitterMin = 5 * time.Millisecond
	// DefaultHandshakeJitterMax is the upper bound of the delay before a node sends its handshake
	DefaultHandshakeJitterMax = 50 * time.Millisecond
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(node *Node)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Node)

// Apply applies the option
func (f OptionFunc) Apply(node *Node) {
	f(node)
}

// WithLogger sets the node logger. Defaults to the actor system logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(node *Node) {
		node.logger = logger
	})
}

// WithNodeID sets the node identifier. Defaults to a random UUID.
func WithNodeID(id string) Option {
	return OptionFunc(func(node *Node) {
		node.id = id
	})
}

// WithHandshakeJitter sets the bounds of the random delay a new link waits
// before sending its handshake.
func WithHandshakeJitter(minDelay, maxDelay time.Duration) Option {
	return OptionFunc(func(node *Node) {
		node.jitterMin = minDelay
		node.jitterMax = maxDelay
	})
}

// WithMeterProvider enables the node metrics
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(node *Node) {
		node.meterProvider = provider
	})
}
