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
	"sort"
	"time"
)

// ManualScheduler is a deterministic Scheduler and Executor for tests. Time
// only moves on Advance, and due timers fire synchronously in deadline order.
// It is not safe for concurrent use.
type ManualScheduler struct {
	now    time.Time
	seq    int
	timers []*manualTimer
}

// NewManualScheduler returns a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

func (m *ManualScheduler) Now() time.Time {
	return m.now
}

func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}

	m.seq++

	t := &manualTimer{owner: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)

	return t
}

// Post runs fn immediately.
func (m *ManualScheduler) Post(fn func()) bool {
	fn()
	return true
}

// Advance moves the clock forward by d, firing every timer that comes due.
// Timers armed by a firing callback also fire if they fall inside the window.
func (m *ManualScheduler) Advance(d time.Duration) {
	target := m.now.Add(d)

	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}

		m.remove(next)
		m.now = next.at
		next.fired = true
		next.fn()
	}

	m.now = target
}

// Pending returns how many timers are armed.
func (m *ManualScheduler) Pending() int {
	return len(m.timers)
}

// NextDeadline returns the earliest armed deadline.
func (m *ManualScheduler) NextDeadline() (time.Time, bool) {
	if len(m.timers) == 0 {
		return time.Time{}, false
	}

	sorted := append([]*manualTimer(nil), m.timers...)
	sortTimers(sorted)

	return sorted[0].at, true
}

func (m *ManualScheduler) nextDue(target time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}

	sorted := append([]*manualTimer(nil), m.timers...)
	sortTimers(sorted)

	if sorted[0].at.After(target) {
		return nil
	}

	return sorted[0]
}

func (m *ManualScheduler) remove(t *manualTimer) {
	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

func sortTimers(timers []*manualTimer) {
	sort.Slice(timers, func(i, j int) bool {
		if timers[i].at.Equal(timers[j].at) {
			return timers[i].seq < timers[j].seq
		}

		return timers[i].at.Before(timers[j].at)
	})
}

type manualTimer struct {
	owner   *ManualScheduler
	at      time.Time
	seq     int
	fn      func()
	fired   bool
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}

	t.stopped = true
	t.owner.remove(t)

	return true
}
