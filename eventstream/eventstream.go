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

import "sync"

// Stream defines the event stream broker.
//
// Publish hands the message to every subscriber of the topic before it
// returns, so events from a single publisher are observed in publication order.
type Stream interface {
	// AddSubscriber adds a subscriber.
	AddSubscriber() Subscriber
	// RemoveSubscriber removes a subscriber and shuts it down.
	RemoveSubscriber(sub Subscriber)
	// SubscribersCount returns the number of subscribers for a given topic.
	SubscribersCount(topic string) int
	// Subscribe subscribes a subscriber to a topic.
	Subscribe(sub Subscriber, topic string)
	// Unsubscribe removes a subscriber from a topic.
	Unsubscribe(sub Subscriber, topic string)
	// Publish publishes a message to a topic.
	Publish(topic string, msg any)
	// Broadcast notifies all subscribers of the given topics of a new message.
	Broadcast(msg any, topics []string)
	// Close shuts down every subscriber and drops all subscriptions.
	Close()
}

type stream struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	topics      map[string]map[string]Subscriber
}

var _ Stream = (*stream)(nil)

// New creates an instance of Stream.
func New() Stream {
	return &stream{
		subscribers: make(map[string]Subscriber),
		topics:      make(map[string]map[string]Subscriber),
	}
}

func (b *stream) AddSubscriber() Subscriber {
	sub := newSubscriber()
	b.mu.Lock()
	b.subscribers[sub.ID()] = sub
	b.mu.Unlock()
	return sub
}

func (b *stream) RemoveSubscriber(sub Subscriber) {
	for _, topic := range sub.Topics() {
		b.Unsubscribe(sub, topic)
	}

	b.mu.Lock()
	delete(b.subscribers, sub.ID())
	b.mu.Unlock()

	sub.Shutdown()
}

func (b *stream) SubscribersCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *stream) Subscribe(sub Subscriber, topic string) {
	if !sub.Active() {
		return
	}

	sub.subscribe(topic)

	b.mu.Lock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]Subscriber)
		b.topics[topic] = subs
	}
	subs[sub.ID()] = sub
	b.mu.Unlock()
}

func (b *stream) Unsubscribe(sub Subscriber, topic string) {
	sub.unsubscribe(topic)

	b.mu.Lock()
	if subs, ok := b.topics[topic]; ok {
		delete(subs, sub.ID())
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
	b.mu.Unlock()
}

func (b *stream) Publish(topic string, msg any) {
	b.publishToTopic(topic, msg)
}

func (b *stream) Broadcast(msg any, topics []string) {
	for _, topic := range topics {
		b.publishToTopic(topic, msg)
	}
}

func (b *stream) Close() {
	b.mu.Lock()
	subscribers := b.subscribers
	b.subscribers = make(map[string]Subscriber)
	b.topics = make(map[string]map[string]Subscriber)
	b.mu.Unlock()

	for _, sub := range subscribers {
		sub.Shutdown()
	}
}

func (b *stream) publishToTopic(topic string, msg any) {
	b.mu.RLock()
	subs := b.topics[topic]
	if len(subs) == 0 {
		b.mu.RUnlock()
		return
	}
	snapshot := make([]Subscriber, 0, len(subs))
	for _, sub := range subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	message := NewMessage(topic, msg)
	for _, sub := range snapshot {
		sub.signal(message)
	}
}
