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

//go:generate mockgen -destination=mock_eventloop.go -package=eventloop github.com/carverauto/exhibitd/pkg/eventloop Clock,Ticker,ClockTimer

// Package eventloop runs every state-changing handler of the exhibit runtime on
// one goroutine, one at a time, and owns the timers those handlers schedule.
package eventloop

import "time"

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
	AfterFunc(d time.Duration, f func()) ClockTimer
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// ClockTimer is the raw timer returned by a Clock. Its callback runs on an
// arbitrary goroutine.
type ClockTimer interface {
	Stop() bool
}

// Timer is a single-shot timer whose callback runs on the loop. Stop must be
// called from the loop; once it returns the callback will not run.
type Timer interface {
	Stop() bool
}

// Scheduler is what components use to read the time and arm timers.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Executor accepts work to run on the loop.
type Executor interface {
	Post(fn func()) bool
}
