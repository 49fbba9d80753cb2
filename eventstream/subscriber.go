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
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/actormesh/actormesh/internal/queue"
)

// Subscriber receives the messages published on the topics it is subscribed to.
//
// Subscribers are created by a Stream via AddSubscriber().
type Subscriber interface {
	// ID returns the subscriber unique identifier
	ID() string
	// Active reports whether the subscriber still accepts messages
	Active() bool
	// Topics returns the subscribed topics
	Topics() []string
	// Iterator drains the messages buffered at the time of the call
	Iterator() chan *Message
	// Next blocks until a message is available, the subscriber is shut down or ctx is done.
	Next(ctx context.Context) (*Message, bool)
	// Shutdown stops the subscriber from accepting messages
	Shutdown()

	signal(message *Message)
	subscribe(topic string)
	unsubscribe(topic string)
}

type subscriber struct {
	id string

	topicsMu sync.Mutex
	topics   map[string]bool

	messages *queue.Queue[*Message]
	active   *atomic.Bool
}

var _ Subscriber = (*subscriber)(nil)

func newSubscriber() *subscriber {
	return &subscriber{
		id:       uuid.NewString(),
		topics:   make(map[string]bool),
		messages: queue.New[*Message](),
		active:   atomic.NewBool(true),
	}
}

func (s *subscriber) ID() string {
	return s.id
}

func (s *subscriber) Active() bool {
	return s.active.Load()
}

func (s *subscriber) Topics() []string {
	s.topicsMu.Lock()
	defer s.topicsMu.Unlock()

	topics := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		topics = append(topics, topic)
	}
	return topics
}

func (s *subscriber) Shutdown() {
	if s.active.CompareAndSwap(true, false) {
		s.messages.Close()
	}
}

// Iterator drains the messages that are buffered at the time of invocation and
// returns them through a closed channel.
//
// Messages enqueued concurrently with (or after) the call are not guaranteed to
// be included in this iterator.
func (s *subscriber) Iterator() chan *Message {
	n := s.messages.Len()
	out := make(chan *Message, n)
	for range n {
		v, ok := s.messages.Pop()
		if !ok {
			break
		}
		out <- v
	}
	close(out)
	return out
}

func (s *subscriber) Next(ctx context.Context) (*Message, bool) {
	return s.messages.Wait(ctx)
}

func (s *subscriber) signal(message *Message) {
	if s.active.Load() {
		s.messages.Push(message)
	}
}

func (s *subscriber) subscribe(topic string) {
	s.topicsMu.Lock()
	s.topics[topic] = true
	s.topicsMu.Unlock()
}

func (s *subscriber) unsubscribe(topic string) {
	s.topicsMu.Lock()
	delete(s.topics, topic)
	s.topicsMu.Unlock()
}
