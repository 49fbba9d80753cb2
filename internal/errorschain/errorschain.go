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

// Package errorschain gathers the failures of shutdown steps that must all run.
package errorschain

import (
	"fmt"

	"go.uber.org/multierr"
)

// Chain accumulates errors in the order the steps ran
type Chain struct {
	err error
}

// New creates an empty chain
func New() *Chain {
	return new(Chain)
}

// AddError records err. Nil errors are ignored.
func (c *Chain) AddError(err error) *Chain {
	c.err = multierr.Append(c.err, err)
	return c
}

// AddStep records the error of the named step, wrapped with its name.
func (c *Chain) AddStep(name string, err error) *Chain {
	if err != nil {
		c.err = multierr.Append(c.err, fmt.Errorf("%s: %w", name, err))
	}
	return c
}

// Error returns every recorded error combined, nil when none was recorded
func (c *Chain) Error() error {
	return c.err
}
