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

// Package validation checks constructor arguments before anything is started.
package validation

import (
	"errors"
	"regexp"

	"go.uber.org/multierr"
)

// Chain runs checks in the order they were added.
type Chain struct {
	failFast bool
	checks   []func() error
}

// ChainOption configures a validation chain at creation time.
type ChainOption func(*Chain)

// New creates a new validation chain.
func New(opts ...ChainOption) *Chain {
	chain := new(Chain)
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// FailFast makes Validate return the first violation.
func FailFast() ChainOption {
	return func(c *Chain) { c.failFast = true }
}

// AllErrors makes Validate combine every violation.
func AllErrors() ChainOption {
	return func(c *Chain) { c.failFast = false }
}

// AddAssertion fails with message when ok is false.
func (c *Chain) AddAssertion(ok bool, message string) *Chain {
	c.checks = append(c.checks, func() error {
		if ok {
			return nil
		}
		return errors.New(message)
	})
	return c
}

// AddMatch fails with err when value does not match pattern.
func (c *Chain) AddMatch(pattern *regexp.Regexp, value string, err error) *Chain {
	c.checks = append(c.checks, func() error {
		if pattern.MatchString(value) {
			return nil
		}
		return err
	})
	return c
}

// Validate runs the checks and returns the resulting error(s).
func (c *Chain) Validate() error {
	var violations error
	for _, check := range c.checks {
		if err := check(); err != nil {
			if c.failFast {
				return err
			}
			violations = multierr.Append(violations, err)
		}
	}
	return violations
}
