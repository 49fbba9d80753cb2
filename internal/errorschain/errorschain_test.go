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

package errorschain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

func TestChain(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	t.Run("Every error is kept in order", func(t *testing.T) {
		err := New().AddError(first).AddError(nil).AddError(second).Error()
		assert.Equal(t, []error{first, second}, multierr.Errors(err))
	})
	t.Run("Steps are named", func(t *testing.T) {
		err := New().AddStep("close link", first).AddStep("unregister metrics", nil).Error()
		assert.ErrorIs(t, err, first)
		assert.EqualError(t, err, "close link: first")
	})
	t.Run("No error", func(t *testing.T) {
		assert.NoError(t, New().AddError(nil).AddStep("noop", nil).Error())
	})
}
