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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/exhibitd/pkg/logger"
)

func startLoop(t *testing.T, clock Clock) *Loop {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	loop := New(clock, logger.NewTestLogger())

	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		_ = loop.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	return loop
}

func TestLoop_RunsHandlersInPostOrder(t *testing.T) {
	loop := startLoop(t, nil)

	var order []int

	for i := 0; i < 50; i++ {
		i := i
		require.True(t, loop.Post(func() { order = append(order, i) }))
	}

	require.NoError(t, loop.Call(context.Background(), func() {}))

	require.Len(t, order, 50)

	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestLoop_RecoversFromPanickingHandler(t *testing.T) {
	loop := startLoop(t, nil)

	loop.Post(func() { panic("boom") })

	ran := false
	require.NoError(t, loop.Call(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestLoop_PostAfterStopFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := New(nil, logger.NewTestLogger())

	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()

	cancel()
	<-done

	assert.False(t, loop.Post(func() {}))
	assert.ErrorIs(t, loop.Call(context.Background(), func() {}), errLoopStopped)
}

func TestLoop_AfterFuncRunsOnLoop(t *testing.T) {
	loop := startLoop(t, nil)

	var fired atomic.Int32

	require.NoError(t, loop.Call(context.Background(), func() {
		loop.AfterFunc(10*time.Millisecond, func() { fired.Add(1) })
	}))

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLoop_StoppedTimerNeverFiresEvenIfClockAlreadyFired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := NewMockClock(ctrl)
	raw := NewMockClockTimer(ctrl)

	var rawCallback func()

	clock.EXPECT().AfterFunc(time.Second, gomock.Any()).DoAndReturn(func(_ time.Duration, f func()) ClockTimer {
		rawCallback = f
		return raw
	})
	raw.EXPECT().Stop().Return(false)

	loop := startLoop(t, clock)

	fired := false

	var timer Timer

	require.NoError(t, loop.Call(context.Background(), func() {
		timer = loop.AfterFunc(time.Second, func() { fired = true })
	}))

	var stopResult bool

	// The raw timer fires while the handler that cancels it is still running.
	require.NoError(t, loop.Call(context.Background(), func() {
		rawCallback()
		stopResult = timer.Stop()
	}))

	require.NoError(t, loop.Call(context.Background(), func() {}))

	assert.True(t, stopResult)
	assert.False(t, fired)
}

func TestLoop_NegativeDelayFiresImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := NewMockClock(ctrl)
	raw := NewMockClockTimer(ctrl)

	clock.EXPECT().AfterFunc(time.Duration(0), gomock.Any()).DoAndReturn(func(_ time.Duration, f func()) ClockTimer {
		go f()
		return raw
	})

	loop := startLoop(t, clock)

	var fired atomic.Bool

	require.NoError(t, loop.Call(context.Background(), func() {
		loop.AfterFunc(-250*time.Millisecond, func() { fired.Store(true) })
	}))

	require.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)
}

func TestManualScheduler_FiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := NewManualScheduler(start)

	var order []string

	s.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	s.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	stopped := s.AfterFunc(200*time.Millisecond, func() { order = append(order, "never") })
	s.AfterFunc(200*time.Millisecond, func() {
		order = append(order, "b")
		s.AfterFunc(50*time.Millisecond, func() { order = append(order, "b2") })
	})

	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	s.Advance(time.Second)

	assert.Equal(t, []string{"a", "b", "b2", "c"}, order)
	assert.Equal(t, start.Add(time.Second), s.Now())
	assert.Zero(t, s.Pending())
}

func TestManualScheduler_StopAfterFire(t *testing.T) {
	s := NewManualScheduler(time.Unix(0, 0))

	timer := s.AfterFunc(time.Millisecond, func() {})
	s.Advance(time.Millisecond)

	assert.False(t, timer.Stop())
}
