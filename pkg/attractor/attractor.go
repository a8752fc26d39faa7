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

// Package attractor switches the display into an autonomous presentation
// after a period without user input and back out on the next input.
package attractor

import (
	"time"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
)

// DefaultTimeout is used when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// State of the machine.
type State int

const (
	Active State = iota
	Attracting
)

func (s State) String() string {
	if s == Attracting {
		return "attracting"
	}

	return "active"
}

type Config struct {
	Timeout   time.Duration
	Scheduler eventloop.Scheduler
	Logger    logger.Logger
	// OnEnter runs when the deadline elapses while Active.
	OnEnter func()
	// OnExit runs when input arrives while Attracting, before the deadline is rearmed.
	OnExit func()
}

// Machine is loop-owned: every method must be called on the loop.
type Machine struct {
	sched   eventloop.Scheduler
	logger  logger.Logger
	onEnter func()
	onExit  func()

	timeout         time.Duration
	state           State
	lastInteraction time.Time
	deadline        time.Time
	timer           eventloop.Timer
	running         bool
}

func New(cfg Config) *Machine {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	noop := func() {}

	m := &Machine{
		sched:   cfg.Scheduler,
		logger:  log,
		onEnter: cfg.OnEnter,
		onExit:  cfg.OnExit,
		timeout: timeout,
	}

	if m.onEnter == nil {
		m.onEnter = noop
	}

	if m.onExit == nil {
		m.onExit = noop
	}

	return m
}

// Start arms the first deadline, counting from now.
func (m *Machine) Start() {
	m.running = true
	m.state = Active
	m.lastInteraction = m.sched.Now()
	m.arm(m.timeout)
}

// Stop cancels the pending deadline.
func (m *Machine) Stop() {
	m.running = false
	m.cancel()
}

// Interaction records user input. While Attracting it leaves attractor mode
// before returning.
func (m *Machine) Interaction() {
	if !m.running {
		return
	}

	m.lastInteraction = m.sched.Now()

	if m.state == Attracting {
		m.state = Active
		m.logger.Info().Msg("Input received, leaving attractor")
		m.onExit()
	}

	m.arm(m.timeout)
}

// SetTimeout changes the inactivity timeout. While Active the deadline moves
// to lastInteraction + timeout; a deadline already in the past fires at once.
func (m *Machine) SetTimeout(timeout time.Duration) {
	if timeout <= 0 || timeout == m.timeout {
		return
	}

	m.timeout = timeout

	m.logger.Info().Dur("timeout", timeout).Msg("Attractor timeout changed")

	if m.running && m.state == Active {
		m.arm(m.lastInteraction.Add(timeout).Sub(m.sched.Now()))
	}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Attracting() bool {
	return m.state == Attracting
}

func (m *Machine) Timeout() time.Duration {
	return m.timeout
}

// Deadline returns when attractor mode engages. Zero while Attracting.
func (m *Machine) Deadline() time.Time {
	if m.state == Attracting || !m.running {
		return time.Time{}
	}

	return m.deadline
}

func (m *Machine) arm(d time.Duration) {
	m.cancel()

	if d < 0 {
		d = 0
	}

	m.deadline = m.sched.Now().Add(d)
	m.timer = m.sched.AfterFunc(d, m.expire)
}

func (m *Machine) cancel() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) expire() {
	m.timer = nil

	if !m.running || m.state != Active {
		return
	}

	m.state = Attracting
	m.logger.Info().Dur("idle", m.sched.Now().Sub(m.lastInteraction)).Msg("Entering attractor")
	m.onEnter()
}
