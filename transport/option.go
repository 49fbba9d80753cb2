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

// Package transport provides cluster.Link implementations: an in-process
// pipe, length-prefixed frames over TCP and a NATS subject pair.
package transport

import (
	"time"

	"github.com/actormesh/actormesh/log"
	"github.com/actormesh/actormesh/protocol"
)

const (
	// DefaultMaxFrameSize bounds the size of a single encoded packet
	DefaultMaxFrameSize = 16 << 20
	// DefaultDialRetries is the number of connection attempts made by Dial and DialNats
	DefaultDialRetries = 5
)

type options struct {
	logger       log.Logger
	codec        *protocol.Codec
	wrappers     []ConnWrapper
	maxFrameSize int
	dialRetries  int
	dialTimeout  time.Duration
	retryDelay   time.Duration
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger:       log.DefaultLogger,
		maxFrameSize: DefaultMaxFrameSize,
		dialRetries:  DefaultDialRetries,
		dialTimeout:  5 * time.Second,
		retryDelay:   2 * time.Second,
	}
	for _, opt := range opts {
		opt.Apply(o)
	}
	return o
}

// codecOrDefault returns the configured codec. Pipes only use a codec when one is set.
func (o *options) codecOrDefault() *protocol.Codec {
	if o.codec == nil {
		o.codec = protocol.NewCodec()
	}
	return o.codec
}

// Option is the interface that applies a transport option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(o *options)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*options)

// Apply applies the option
func (f OptionFunc) Apply(o *options) {
	f(o)
}

// WithLogger sets the transport logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(o *options) {
		o.logger = logger
	})
}

// WithCodec sets the codec used to encode packets. A pipe given a codec
// round trips every packet through it.
func WithCodec(codec *protocol.Codec) Option {
	return OptionFunc(func(o *options) {
		o.codec = codec
	})
}

// WithConnWrapper appends a ConnWrapper, such as compression, applied to TCP connections
func WithConnWrapper(wrapper ConnWrapper) Option {
	return OptionFunc(func(o *options) {
		o.wrappers = append(o.wrappers, wrapper)
	})
}

// WithMaxFrameSize bounds the size of a single encoded packet
func WithMaxFrameSize(size int) Option {
	return OptionFunc(func(o *options) {
		o.maxFrameSize = size
	})
}

// WithDialRetries sets the number of connection attempts and the maximum delay between two of them
func WithDialRetries(retries int, maxDelay time.Duration) Option {
	return OptionFunc(func(o *options) {
		o.dialRetries = retries
		o.retryDelay = maxDelay
	})
}

// WithDialTimeout sets the timeout of a single connection attempt
func WithDialTimeout(timeout time.Duration) Option {
	return OptionFunc(func(o *options) {
		o.dialTimeout = timeout
	})
}
