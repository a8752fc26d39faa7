/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package eventloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/exhibitd/pkg/logger"
)

const defaultQueueSize = 1024

// Loop executes posted handlers sequentially. Handlers run to completion before
// the next one starts, so state touched only from handlers needs no locking.
type Loop struct {
	clock     Clock
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
	logger    logger.Logger
}

// New creates a loop. A nil clock means the wall clock.
func New(clock Clock, log logger.Logger) *Loop {
	if clock == nil {
		clock = realClock{}
	}

	return &Loop{
		clock:  clock,
		queue:  make(chan func(), defaultQueueSize),
		done:   make(chan struct{}),
		logger: log,
	}
}

// Run processes handlers until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.closeOnce.Do(func() { close(l.done) })

	l.logger.Debug().Msg("Event loop started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug().Msg("Event loop stopping due to context cancellation")
			return ctx.Err()
		case fn := <-l.queue:
			l.invoke(fn)
		}
	}
}

// Post queues fn for execution on the loop. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})

	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return errLoopStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return errLoopStopped
	}
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// AfterFunc implements Scheduler. fn runs on the loop.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}

	t := &loopTimer{}
	t.raw = l.clock.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped {
				return
			}

			t.fired = true
			fn()
		})
	})

	return t
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Str("panic", fmt.Sprint(r)).Msg("Recovered from panic in loop handler")
		}
	}()

	fn()
}

// loopTimer fields are only touched on the loop goroutine.
type loopTimer struct {
	raw     ClockTimer
	stopped bool
	fired   bool
}

func (t *loopTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}

	t.stopped = true

	if t.raw != nil {
		t.raw.Stop()
	}

	return true
}
