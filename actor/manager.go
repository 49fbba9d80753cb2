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
	stderrors "errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"

	"github.com/actormesh/actormesh/errors"
	"github.com/actormesh/actormesh/future"
	"github.com/actormesh/actormesh/log"
)

// managerState is the lifecycle state of an actor
type managerState int32

const (
	initializing managerState = iota
	ready
	stopped
)

// processing states of the mailbox loop
const (
	idle int32 = iota
	busy
)

// manager owns the mailbox of one actor and runs its behavior, one message at a time.
type manager struct {
	address string
	system  *System
	ctx     *Context
	mailbox Mailbox
	logger  log.Logger

	// mu guards behavior against the init and stop paths
	mu       sync.Mutex
	behavior Behavior

	state      *atomic.Int32
	processing *atomic.Int32

	finalizeOnce sync.Once
	done         chan struct{}
}

func newManager(system *System, ctx *Context, mailbox Mailbox) *manager {
	return &manager{
		address:    ctx.address,
		system:     system,
		ctx:        ctx,
		mailbox:    mailbox,
		logger:     ctx.logger,
		state:      atomic.NewInt32(int32(initializing)),
		processing: atomic.NewInt32(idle),
		done:       make(chan struct{}),
	}
}

// enqueue hands msg to the mailbox and wakes the processing loop.
func (m *manager) enqueue(msg *Message) error {
	if managerState(m.state.Load()) == stopped {
		return errors.ErrMailboxDisposed
	}
	if err := m.mailbox.Enqueue(msg); err != nil {
		return err
	}
	m.process()
	return nil
}

// ready installs the behavior and starts draining the messages buffered during init.
// It reports false when the actor was stopped in the meantime.
func (m *manager) ready(behavior Behavior) bool {
	m.mu.Lock()
	if managerState(m.state.Load()) != initializing {
		m.mu.Unlock()
		return false
	}
	m.behavior = behavior
	m.state.Store(int32(ready))
	m.mu.Unlock()

	m.process()
	return true
}

// adopt installs behavior without starting the processing loop, so that it is
// finalized when the actor stops before handling anything.
func (m *manager) adopt(behavior Behavior) {
	m.mu.Lock()
	m.behavior = behavior
	m.mu.Unlock()
}

// await resolves an asynchronous behavior. A failure unregisters the actor.
func (m *manager) await(pending future.Future[Behavior]) {
	behavior, err := pending.Await(m.system.ctx)
	if err == nil && behavior == nil {
		err = stderrors.New("constructor returned no behavior")
	}
	if err != nil {
		m.logger.Error(errors.NewCreateFailure(m.address, err))
		m.system.StopActor(m.address)
		return
	}
	if !m.ready(behavior) {
		m.logger.Debugf("actor %s stopped before its behavior was ready", m.address)
	}
}

// process starts the processing loop unless one is already running or the
// actor is still initializing.
func (m *manager) process() {
	if managerState(m.state.Load()) == initializing {
		return
	}
	if !m.processing.CompareAndSwap(idle, busy) {
		return
	}
	go m.loop()
}

func (m *manager) loop() {
	for {
		if managerState(m.state.Load()) == stopped {
			m.finalize()
			return
		}

		if msg := m.mailbox.Dequeue(); msg != nil {
			m.handle(msg)
			if m.ctx.stopRequested.Load() {
				m.system.StopActor(m.address)
			}
			continue
		}

		// if no more messages, change busy state to idle
		m.processing.Store(idle)

		// check whether new messages or a stop came in meanwhile
		if (!m.mailbox.IsEmpty() || managerState(m.state.Load()) == stopped) &&
			m.processing.CompareAndSwap(idle, busy) {
			continue
		}
		return
	}
}

func (m *manager) handle(msg *Message) {
	scope := m.ctx.enter(msg)
	defer m.ctx.leave()
	defer m.recovery(msg)

	if err := m.behavior.Receive(m.ctx, msg); err != nil {
		if stderrors.Is(err, errors.ErrUnhandled) {
			if !scope.unhandled.Load() {
				m.system.unhandled(m.address, msg, "")
			}
			return
		}
		m.logger.Errorf("actor %s failed to handle message: %v", m.address, err)
	}
}

// recovery logs a panicking handler so that it never takes the system down.
func (m *manager) recovery(msg *Message) {
	if r := recover(); r != nil {
		pc, fn, line, _ := runtime.Caller(2)
		var err error
		switch v := r.(type) {
		case error:
			err = fmt.Errorf("%w at %s[%s:%d]", v, runtime.FuncForPC(pc).Name(), fn, line)
		default:
			err = fmt.Errorf("%#v at %s[%s:%d]", r, runtime.FuncForPC(pc).Name(), fn, line)
		}
		m.logger.Errorf("actor %s panicked handling message to %s: %v", m.address, msg.To, errors.NewPanicError(err))
	}
}

// stop disposes the mailbox. The behavior is finalized here when no handler
// is running, otherwise by the processing loop once the handler returns.
func (m *manager) stop() {
	m.mu.Lock()
	previous := managerState(m.state.Swap(int32(stopped)))
	m.mu.Unlock()
	if previous == stopped {
		return
	}

	m.mailbox.Dispose()
	if m.processing.CompareAndSwap(idle, busy) {
		m.finalize()
	}
}

func (m *manager) finalize() {
	m.finalizeOnce.Do(func() {
		defer close(m.done)

		m.mu.Lock()
		behavior := m.behavior
		m.mu.Unlock()

		stopper, ok := behavior.(PostStopper)
		if !ok {
			return
		}

		defer func() {
			if r := recover(); r != nil {
				m.logger.Errorf("actor %s panicked while stopping: %v", m.address, r)
			}
		}()
		if err := stopper.PostStop(m.ctx); err != nil {
			m.logger.Errorf("actor %s failed to stop cleanly: %v", m.address, err)
		}
	})
}
