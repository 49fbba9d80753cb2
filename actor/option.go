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

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/actormesh/actormesh/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(sys *System)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*System)

// Apply applies the option
func (f OptionFunc) Apply(c *System) {
	f(c)
}

// WithLogger sets the actor system custom log
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(a *System) {
		a.logger = logger
	})
}

// WithAskTimeout sets how long Ask waits for a reply by default
func WithAskTimeout(timeout time.Duration) Option {
	return OptionFunc(func(a *System) {
		a.askTimeout = timeout
	})
}

// WithMailbox sets the mailbox factory used for every new actor
func WithMailbox(factory func() Mailbox) Option {
	return OptionFunc(func(a *System) {
		a.mailbox = factory
	})
}

// WithMeterProvider enables the system metrics
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(a *System) {
		a.meterProvider = provider
	})
}

// SendOption configures Ref.Send
type SendOption interface {
	Apply(config *sendConfig)
}

type sendConfig struct {
	replyTo string
}

type sendOptionFunc func(*sendConfig)

func (f sendOptionFunc) Apply(c *sendConfig) {
	f(c)
}

// WithReplyTo sets the address replies should be sent to
func WithReplyTo(address string) SendOption {
	return sendOptionFunc(func(c *sendConfig) {
		c.replyTo = address
	})
}

// AskOption configures Ref.Ask
type AskOption interface {
	Apply(config *askConfig)
}

type askConfig struct {
	timeout time.Duration
	id      string
}

type askOptionFunc func(*askConfig)

func (f askOptionFunc) Apply(c *askConfig) {
	f(c)
}

// WithTimeout overrides the system ask timeout for one request
func WithTimeout(timeout time.Duration) AskOption {
	return askOptionFunc(func(c *askConfig) {
		c.timeout = timeout
	})
}

// WithAskID sets the address of the transient reply actor
func WithAskID(id string) AskOption {
	return askOptionFunc(func(c *askConfig) {
		c.id = id
	})
}

// RunOption configures System.Run
type RunOption interface {
	Apply(config *runConfig)
}

type runConfig struct {
	address string
}

type runOptionFunc func(*runConfig)

func (f runOptionFunc) Apply(c *runConfig) {
	f(c)
}

// WithRunAddress sets the address of the transient actor running the script
func WithRunAddress(address string) RunOption {
	return runOptionFunc(func(c *runConfig) {
		c.address = address
	})
}
