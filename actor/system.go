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
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	"github.com/actormesh/actormesh/dependency"
	"github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/eventstream"
	"github.com/actormesh/actormesh/future"
	"github.com/actormesh/actormesh/internal/errorschain"
	"github.com/actormesh/actormesh/internal/validation"
	"github.com/actormesh/actormesh/internal/xsync"
	"github.com/actormesh/actormesh/log"
	"github.com/actormesh/actormesh/metric"
)

const (
	// DefaultAskTimeout is how long Ask waits for a reply unless configured otherwise
	DefaultAskTimeout = time.Second

	instrumentationName = "github.com/actormesh/actormesh/actor"
)

var systemNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-_]*$`)

// Router delivers messages to addresses that are not registered locally and
// learns about local actors as they come and go.
type Router interface {
	// Forward routes msg to a remote node. It reports false when no route is known.
	Forward(msg *Message) bool
	// ActorCreated is called after a local actor has been registered
	ActorCreated(address string)
	// ActorDestroyed is called after a local actor has been unregistered
	ActorDestroyed(address string)
}

// System is the local actor registry. It creates actors, delivers their
// messages and publishes the runtime events.
type System struct {
	name   string
	logger log.Logger

	askTimeout    time.Duration
	mailbox       func() Mailbox
	meterProvider otelmetric.MeterProvider

	actors    *xsync.Map[string, *manager]
	stream    eventstream.Stream
	container *dependency.Container

	routerMu sync.RWMutex
	router   Router

	ctx    context.Context
	cancel context.CancelFunc

	stopped          *atomic.Bool
	messagesSent     *atomic.Int64
	undeliveredCount *atomic.Int64
	unhandledCount   *atomic.Int64
	registration     otelmetric.Registration
}

// NewSystem creates an actor system
func NewSystem(name string, opts ...Option) (*System, error) {
	if err := validation.New(validation.FailFast()).
		AddAssertion(name != "", "actor system name is required").
		AddMatch(systemNamePattern, name, errors.ErrInvalidSystemName).
		Validate(); err != nil {
		return nil, err
	}

	system := &System{
		name:             name,
		logger:           log.DefaultLogger,
		askTimeout:       DefaultAskTimeout,
		mailbox:          func() Mailbox { return NewUnboundedMailbox() },
		actors:           xsync.NewMap[string, *manager](),
		stream:           eventstream.New(),
		stopped:          atomic.NewBool(false),
		messagesSent:     atomic.NewInt64(0),
		undeliveredCount: atomic.NewInt64(0),
		unhandledCount:   atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt.Apply(system)
	}

	system.logger = system.logger.With("system", name)
	system.container = dependency.New(dependency.WithObserver(system.publish))
	system.ctx, system.cancel = context.WithCancel(context.Background())

	if err := system.registerMetrics(); err != nil {
		system.cancel()
		return nil, err
	}
	return system, nil
}

// Name returns the actor system name
func (x *System) Name() string {
	return x.name
}

// Logger returns the actor system logger
func (x *System) Logger() log.Logger {
	return x.logger
}

// Dependencies returns the global dependency scope
func (x *System) Dependencies() *dependency.Container {
	return x.container
}

// SetRouter installs the router used for non-local addresses.
func (x *System) SetRouter(router Router) {
	x.routerMu.Lock()
	x.router = router
	x.routerMu.Unlock()
}

func (x *System) getRouter() Router {
	x.routerMu.RLock()
	defer x.routerMu.RUnlock()
	return x.router
}

// ActorOf creates an actor in the global dependency scope.
func (x *System) ActorOf(definition Definition, props any) (*Ref, error) {
	return x.createActor(x.container, definition, props)
}

// ActorFor returns a reference to address, which may be local or remote.
func (x *System) ActorFor(address string) *Ref {
	return newRef(x, address, x.container)
}

// Addresses returns the sorted addresses of the local actors
func (x *System) Addresses() []string {
	addresses := x.actors.Keys()
	sort.Strings(addresses)
	return addresses
}

// Subscribe returns a subscriber receiving the runtime events
func (x *System) Subscribe() eventstream.Subscriber {
	subscriber := x.stream.AddSubscriber()
	x.stream.Subscribe(subscriber, EventsTopic)
	return subscriber
}

// Unsubscribe removes a subscriber returned by Subscribe
func (x *System) Unsubscribe(subscriber eventstream.Subscriber) {
	x.stream.RemoveSubscriber(subscriber)
}

// createActor registers a new actor whose dependency scope is nested in parent.
func (x *System) createActor(parent *dependency.Container, definition Definition, props any) (*Ref, error) {
	if x.stopped.Load() {
		return nil, errors.ErrSystemStopped
	}
	if err := definition.Validate(); err != nil {
		return nil, err
	}

	address := definition.Address(props)
	if address == "" {
		return nil, fmt.Errorf("%w: resolved address is empty", errors.ErrInvalidDefinition)
	}

	ctx := newContext(x.ctx, x, address, parent.NewScope(address))
	manager := newManager(x, ctx, x.mailbox())
	if !x.actors.SetIfAbsent(address, manager) {
		return nil, fmt.Errorf("%w: %s", errors.ErrDuplicateAddress, address)
	}

	var (
		behavior Behavior
		pending  future.Future[Behavior]
		err      error
	)
	if definition.Create != nil {
		behavior, err = create(definition, ctx, props)
	} else {
		pending, err = createAsync(definition, ctx, props)
	}
	if err != nil {
		x.actors.Delete(address)
		manager.stop()
		return nil, errors.NewCreateFailure(address, err)
	}

	x.publish(&ActorCreated{Address: address})
	x.logger.Debugf("actor %s created", address)
	if router := x.getRouter(); router != nil {
		router.ActorCreated(address)
	}

	// a stop requested by the constructor applies once the actor is registered
	if ctx.constructed() {
		manager.adopt(behavior)
		x.StopActor(address)
		return newRef(x, address, parent), nil
	}

	if pending != nil {
		go manager.await(pending)
	} else {
		manager.ready(behavior)
	}
	return newRef(x, address, parent), nil
}

// create runs a synchronous constructor, turning a panic into an error.
func create(definition Definition, ctx *Context, props any) (behavior Behavior, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewPanicError(fmt.Errorf("%v", r))
		}
	}()
	behavior, err = definition.Create(ctx, props)
	if err == nil && behavior == nil {
		err = fmt.Errorf("%w: Create returned no behavior", errors.ErrInvalidDefinition)
	}
	return behavior, err
}

// createAsync starts an asynchronous constructor, turning a panic into an error.
func createAsync(definition Definition, ctx *Context, props any) (pending future.Future[Behavior], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewPanicError(fmt.Errorf("%v", r))
		}
	}()
	pending = definition.CreateAsync(ctx, props)
	if pending == nil {
		err = fmt.Errorf("%w: CreateAsync returned no future", errors.ErrInvalidDefinition)
	}
	return pending, err
}

// SendMessage delivers msg locally when its recipient is registered here, through
// the router otherwise. It never fails: undeliverable messages are published as
// UndeliveredMessage events.
func (x *System) SendMessage(msg *Message) {
	if manager, ok := x.actors.Get(msg.To); ok {
		if err := manager.enqueue(msg); err != nil {
			x.undelivered(msg, err)
			return
		}
		x.sent(msg)
		return
	}

	if router := x.getRouter(); router != nil && router.Forward(msg) {
		x.sent(msg)
		return
	}
	x.undelivered(msg, fmt.Errorf("no actor or route for %s", msg.To))
}

// SendLocalMessage delivers msg only when its recipient is registered on this system.
func (x *System) SendLocalMessage(msg *Message) bool {
	manager, ok := x.actors.Get(msg.To)
	if !ok {
		return false
	}
	if err := manager.enqueue(msg); err != nil {
		x.undelivered(msg, err)
		return false
	}
	x.sent(msg)
	return true
}

// StopActor stops and unregisters the actor at address.
// It returns false when no such actor is registered.
func (x *System) StopActor(address string) bool {
	manager, ok := x.actors.Pop(address)
	if !ok {
		return false
	}

	x.publish(&ActorDestroyed{Address: address})
	manager.stop()
	x.logger.Debugf("actor %s stopped", address)
	if router := x.getRouter(); router != nil {
		router.ActorDestroyed(address)
	}
	return true
}

// Run creates a transient actor, runs script against its context and stops
// the actor. Messages sent to the transient actor are reported as unhandled.
// ctx is the one returned by Context.Context inside the script.
func (x *System) Run(ctx context.Context, script func(ctx *Context) error, opts ...RunOption) error {
	config := &runConfig{address: "run:" + uuid.NewString()}
	for _, opt := range opts {
		opt.Apply(config)
	}

	var runContext *Context
	definition := Definition{
		Address: Fixed(config.address),
		Create: func(c *Context, _ any) (Behavior, error) {
			c.ctx = ctx
			runContext = c
			return BehaviorFunc(func(c *Context, _ *Message) error {
				return c.Unhandled()
			}), nil
		},
	}
	if _, err := x.createActor(x.container, definition, nil); err != nil {
		return err
	}
	defer x.StopActor(config.address)

	return script(runContext)
}

// Stop stops every actor, waits for them to finish within ctx and closes the event stream.
func (x *System) Stop(ctx context.Context) error {
	if !x.stopped.CompareAndSwap(false, true) {
		return nil
	}

	managers := x.actors.Values()
	for _, manager := range managers {
		x.StopActor(manager.address)
	}

	chain := errorschain.New()
	for _, manager := range managers {
		select {
		case <-manager.done:
		case <-ctx.Done():
			chain.AddStep("stop actor "+manager.address, ctx.Err())
		}
	}

	x.cancel()
	if x.registration != nil {
		chain.AddStep("unregister system metrics", x.registration.Unregister())
	}
	x.stream.Close()
	x.logger.Infof("actor system %s stopped", x.name)
	return chain.Error()
}

func (x *System) publish(event any) {
	x.stream.Publish(EventsTopic, event)
}

func (x *System) sent(msg *Message) {
	x.messagesSent.Inc()
	x.publish(&MessageSent{Message: msg})
}

func (x *System) undelivered(msg *Message, reason error) {
	x.undeliveredCount.Inc()
	x.publish(&UndeliveredMessage{Message: msg, Reason: reason})
	x.logger.Errorf("message to %s was not delivered: %v", msg.To, reason)
}

func (x *System) unhandled(source string, msg *Message, stack string) {
	x.unhandledCount.Inc()
	x.publish(&UnhandledMessage{Source: source, Message: msg, Stack: stack})
	x.logger.Warnf("actor %s did not handle message %T", source, msg.Body)
}

func (x *System) registerMetrics() error {
	if x.meterProvider == nil {
		return nil
	}

	meter := x.meterProvider.Meter(instrumentationName)
	metrics, err := metric.NewSystemMetric(meter)
	if err != nil {
		return err
	}

	observeOptions := []otelmetric.ObserveOption{
		otelmetric.WithAttributes(attribute.String("actor.system", x.name)),
	}

	x.registration, err = meter.RegisterCallback(func(_ context.Context, observer otelmetric.Observer) error {
		observer.ObserveInt64(metrics.ActorsCount(), int64(x.actors.Len()), observeOptions...)
		observer.ObserveInt64(metrics.MessagesSent(), x.messagesSent.Load(), observeOptions...)
		observer.ObserveInt64(metrics.UndeliveredCount(), x.undeliveredCount.Load(), observeOptions...)
		observer.ObserveInt64(metrics.UnhandledCount(), x.unhandledCount.Load(), observeOptions...)
		return nil
	}, metrics.ActorsCount(),
		metrics.MessagesSent(),
		metrics.UndeliveredCount(),
		metrics.UnhandledCount(),
	)
	return err
}
