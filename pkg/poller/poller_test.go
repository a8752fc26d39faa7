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

package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
)

func startLoop(t *testing.T) *eventloop.Loop {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	loop := eventloop.New(nil, logger.NewTestLogger())

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

func staticBuild(endpoint string) BuildFunc {
	return func() (string, *models.PingRequest, bool) {
		return endpoint, &models.PingRequest{
			Class:              models.ComponentClass,
			ID:                 "Lobby Wall",
			Type:               "media_player",
			CurrentInteraction: "false",
			AllowedActions:     map[string]string{"refresh": "true"},
		}, endpoint != ""
	}
}

func setupClock(t *testing.T, ctrl *gomock.Controller, interval time.Duration) (*eventloop.MockClock, chan time.Time) {
	t.Helper()

	tickCh := make(chan time.Time)
	var recv <-chan time.Time = tickCh

	clock := eventloop.NewMockClock(ctrl)
	ticker := eventloop.NewMockTicker(ctrl)

	clock.EXPECT().Ticker(interval).Return(ticker)
	clock.EXPECT().Now().Return(time.Unix(0, 0)).AnyTimes()
	ticker.EXPECT().Chan().Return(recv).AnyTimes()
	ticker.EXPECT().Stop().AnyTimes()

	return clock, tickCh
}

func TestPoller_InitialTickPingsAndDeliversUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	received := make(chan models.PingRequest, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PingPath, r.URL.Path)

		var req models.PingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received <- req

		_, _ = w.Write([]byte(`{"commands":["gotoClip_3","refresh_page"],"allow_refresh":"false"}`))
	}))
	defer srv.Close()

	clock, tickCh := setupClock(t, ctrl, 2*time.Second)
	loop := startLoop(t)

	updates := make(chan *models.Update, 4)

	p, err := New(&Config{
		Interval: 2 * time.Second,
		Clock:    clock,
		Executor: loop,
		Build:    staticBuild(srv.URL + "/"),
		OnUpdate: func(u *models.Update, _ error) { updates <- u },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = p.Start(ctx) }()

	select {
	case u := <-updates:
		cmds, ok := u.Commands.Get()
		require.True(t, ok)
		assert.Equal(t, []string{"gotoClip_3", "refresh_page"}, cmds)
	case <-time.After(2 * time.Second):
		t.Fatal("initial tick did not deliver an update")
	}

	req := <-received
	assert.Equal(t, models.ComponentClass, req.Class)
	assert.Equal(t, "Lobby Wall", req.ID)
	assert.Equal(t, "false", req.CurrentInteraction)

	tickCh <- time.Unix(2, 0)

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker tick did not deliver an update")
	}

	cancel()
	require.NoError(t, p.Stop(context.Background()))
}

func TestPoller_SkipsTickWhileRequestInFlight(t *testing.T) {
	release := make(chan struct{})

	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	loop := startLoop(t)

	var delivered atomic.Int32

	p, err := New(&Config{
		Executor:       loop,
		RequestTimeout: 5 * time.Second,
		Build:          staticBuild(srv.URL),
		OnUpdate:       func(*models.Update, error) { delivered.Add(1) },
	})
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, loop.Call(ctx, func() { p.tick(ctx) }))
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, loop.Call(ctx, func() { p.tick(ctx) }))
	}

	var inFlight bool

	require.NoError(t, loop.Call(ctx, func() { inFlight = p.InFlight() }))
	assert.True(t, inFlight)
	assert.Equal(t, int32(1), hits.Load())

	close(release)

	require.Eventually(t, func() bool { return delivered.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, loop.Call(ctx, func() { p.tick(ctx) }))
	require.Eventually(t, func() bool { return delivered.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), hits.Load())
}

func TestPoller_NoPingWithoutEndpoint(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	loop := startLoop(t)

	p, err := New(&Config{Executor: loop, Build: staticBuild("")})
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, loop.Call(ctx, func() { p.tick(ctx) }))

	var inFlight bool

	require.NoError(t, loop.Call(ctx, func() { inFlight = p.InFlight() }))
	assert.False(t, inFlight)
	assert.Zero(t, hits.Load())
}

func TestPoller_AbsorbsFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler func(release <-chan struct{}) http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(<-chan struct{}) http.HandlerFunc {
				return func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusServiceUnavailable)
				}
			},
		},
		{
			name: "undecodable body",
			handler: func(<-chan struct{}) http.HandlerFunc {
				return func(w http.ResponseWriter, _ *http.Request) {
					_, _ = w.Write([]byte("<html>"))
				}
			},
		},
		{
			name: "timeout",
			handler: func(release <-chan struct{}) http.HandlerFunc {
				return func(_ http.ResponseWriter, r *http.Request) {
					select {
					case <-r.Context().Done():
					case <-release:
					}
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			release := make(chan struct{})

			srv := httptest.NewServer(tc.handler(release))
			defer srv.Close()
			defer close(release)

			loop := startLoop(t)

			var delivered atomic.Int32

			p, err := New(&Config{
				Executor:       loop,
				RequestTimeout: 50 * time.Millisecond,
				Build:          staticBuild(srv.URL),
				OnUpdate:       func(*models.Update, error) { delivered.Add(1) },
			})
			require.NoError(t, err)

			ctx := context.Background()

			require.NoError(t, loop.Call(ctx, func() { p.tick(ctx) }))

			require.Eventually(t, func() bool {
				var inFlight bool
				_ = loop.Call(ctx, func() { inFlight = p.InFlight() })

				return !inFlight
			}, 2*time.Second, 5*time.Millisecond)

			assert.Zero(t, delivered.Load())
		})
	}
}

func TestPoller_DeliversUpdateWithMalformedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"allow_restart":"maybe","content":["a.mp4",5],"commands":["gotoClip_3"]}`))
	}))
	defer srv.Close()

	loop := startLoop(t)

	type delivery struct {
		update  *models.Update
		invalid error
	}

	deliveries := make(chan delivery, 1)

	p, err := New(&Config{
		Executor: loop,
		Build:    staticBuild(srv.URL),
		OnUpdate: func(u *models.Update, invalid error) { deliveries <- delivery{u, invalid} },
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, loop.Call(ctx, func() { p.tick(ctx) }))

	select {
	case d := <-deliveries:
		require.NotNil(t, d.update)
		assert.Error(t, d.invalid)
		assert.False(t, d.update.AllowRestart.Present())
		assert.False(t, d.update.Content.Present())

		cmds, ok := d.update.Commands.Get()
		require.True(t, ok)
		assert.Equal(t, []string{"gotoClip_3"}, cmds)
	case <-time.After(2 * time.Second):
		t.Fatal("update with malformed fields was not delivered")
	}
}

func TestPoller_SetIntervalRetunesTicker(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := eventloop.NewMockTicker(ctrl)
	second := eventloop.NewMockTicker(ctrl)
	clock := eventloop.NewMockClock(ctrl)

	var never <-chan time.Time = make(chan time.Time)

	var retuned atomic.Bool

	gomock.InOrder(
		clock.EXPECT().Ticker(5*time.Second).Return(first),
		clock.EXPECT().Ticker(9*time.Second).DoAndReturn(func(time.Duration) eventloop.Ticker {
			retuned.Store(true)
			return second
		}),
	)

	first.EXPECT().Chan().Return(never).AnyTimes()
	first.EXPECT().Stop().MinTimes(1)
	second.EXPECT().Chan().Return(never).AnyTimes()
	second.EXPECT().Stop().AnyTimes()

	loop := startLoop(t)

	p, err := New(&Config{Clock: clock, Executor: loop, Build: staticBuild("")})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	go func() { _ = p.Start(ctx) }()

	require.NoError(t, loop.Call(ctx, func() {
		p.SetInterval(0)
		p.SetInterval(9 * time.Second)
	}))

	require.Eventually(t, retuned.Load, time.Second, 5*time.Millisecond)

	var interval time.Duration

	require.NoError(t, loop.Call(ctx, func() { interval = p.Interval() }))
	assert.Equal(t, 9*time.Second, interval)

	cancel()
	require.NoError(t, p.Stop(context.Background()))
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(&Config{Build: staticBuild("")})
	require.ErrorIs(t, err, errMissingExecutor)

	_, err = New(&Config{Executor: eventloop.NewManualScheduler(time.Unix(0, 0))})
	require.ErrorIs(t, err, errMissingBuilder)
}

func TestIntervalFor(t *testing.T) {
	assert.Equal(t, 2*time.Second, IntervalFor(DeviceClassMediaPlayer, 0))
	assert.Equal(t, 5*time.Second, IntervalFor(DeviceClassKiosk, 0))
	assert.Equal(t, 5*time.Second, IntervalFor("unknown", 0))
	assert.Equal(t, 750*time.Millisecond, IntervalFor(DeviceClassMediaPlayer, 750*time.Millisecond))
}
