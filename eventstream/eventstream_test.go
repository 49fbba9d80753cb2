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

package eventstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStream(t *testing.T) {
	t.Run("With Subscription", func(t *testing.T) {
		broker := New()
		t.Cleanup(broker.Close)

		cons := broker.AddSubscriber()
		require.NotNil(t, cons)
		broker.Subscribe(cons, "t1")
		broker.Subscribe(cons, "t2")

		assert.EqualValues(t, 1, broker.SubscribersCount("t1"))
		assert.EqualValues(t, 1, broker.SubscribersCount("t2"))

		broker.RemoveSubscriber(cons)
		assert.Zero(t, broker.SubscribersCount("t1"))
		assert.Zero(t, broker.SubscribersCount("t2"))
		assert.False(t, cons.Active())

		broker.Subscribe(cons, "t3")
		assert.Zero(t, broker.SubscribersCount("t3"))
	})
	t.Run("With Unsubscription", func(t *testing.T) {
		broker := New()
		t.Cleanup(broker.Close)

		cons := broker.AddSubscriber()
		broker.Subscribe(cons, "t1")
		broker.Subscribe(cons, "t2")

		broker.Unsubscribe(cons, "t1")
		assert.Zero(t, broker.SubscribersCount("t1"))
		assert.EqualValues(t, 1, broker.SubscribersCount("t2"))
		assert.Equal(t, []string{"t2"}, cons.Topics())
	})
	t.Run("With Publication preserves order", func(t *testing.T) {
		broker := New()
		t.Cleanup(broker.Close)

		cons := broker.AddSubscriber()
		broker.Subscribe(cons, "t1")
		for i := 0; i < 50; i++ {
			broker.Publish("t1", i)
		}
		broker.Publish("other", "ignored")

		var payloads []any
		for message := range cons.Iterator() {
			assert.Equal(t, "t1", message.Topic())
			payloads = append(payloads, message.Payload())
		}
		require.Len(t, payloads, 50)
		for i, p := range payloads {
			assert.Equal(t, i, p)
		}
	})
	t.Run("With Broadcast", func(t *testing.T) {
		broker := New()
		t.Cleanup(broker.Close)

		cons := broker.AddSubscriber()
		broker.Subscribe(cons, "t1")
		broker.Subscribe(cons, "t2")
		broker.Broadcast("hi", []string{"t1", "t2"})

		count := 0
		for range cons.Iterator() {
			count++
		}
		assert.Equal(t, 2, count)
	})
	t.Run("With Next", func(t *testing.T) {
		broker := New()
		cons := broker.AddSubscriber()
		broker.Subscribe(cons, "t1")

		go func() {
			time.Sleep(10 * time.Millisecond)
			broker.Publish("t1", "late")
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		message, ok := cons.Next(ctx)
		require.True(t, ok)
		assert.Equal(t, "late", message.Payload())

		broker.Close()
		_, ok = cons.Next(context.Background())
		assert.False(t, ok)
	})
}
