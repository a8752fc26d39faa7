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

// Package agent runs the exhibit client: it seeds its identity from the
// helper, keeps in step with the control server and drives the display.
package agent

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/exhibitd/pkg/analytics"
	"github.com/carverauto/exhibitd/pkg/attractor"
	"github.com/carverauto/exhibitd/pkg/command"
	"github.com/carverauto/exhibitd/pkg/display"
	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/helper"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
	"github.com/carverauto/exhibitd/pkg/poller"
	"github.com/carverauto/exhibitd/pkg/sequencer"
	"github.com/carverauto/exhibitd/pkg/synchronizer"
)

var errLoopStopped = errors.New("event loop is not running")

// Renderer is everything the client asks of the display.
type Renderer interface {
	sequencer.Renderer
	SetAttractor(on bool)
	Reload()
	Settings(values map[string]interface{})
}

// EventSink receives analytics events. Implementations must not block.
type EventSink interface {
	AttractorStarted(data analytics.EventData)
	AttractorStopped(data analytics.EventData)
	SyncStarted(data analytics.EventData)
	CommandExecuted(data analytics.EventData)
	Close() error
}

// Option customizes a Client.
type Option func(*Client)

// WithScheduler runs the client on an external scheduler instead of its own
// event loop. Start will not start a loop.
func WithScheduler(sched eventloop.Scheduler, exec eventloop.Executor) Option {
	return func(c *Client) {
		c.sched = sched
		c.exec = exec
	}
}

// WithClock sets the clock of the client's own loop and of the poll ticker.
func WithClock(clock eventloop.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithRenderer replaces the websocket display. No display server is started.
func WithRenderer(r Renderer) Option {
	return func(c *Client) {
		c.renderer = r
	}
}

// WithEventSink replaces the analytics publisher.
func WithEventSink(sink EventSink) Option {
	return func(c *Client) {
		c.events = sink
	}
}

// WithHTTPClient sets the client used for the helper and the control server.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client is one exhibit display. All fields below the loop marker belong to
// the event loop.
type Client struct {
	cfg    *Config
	logger logger.Logger
	clock  eventloop.Clock
	http   *http.Client

	loop  *eventloop.Loop
	sched eventloop.Scheduler
	exec  eventloop.Executor

	bridge     *helper.Bridge
	autorun    *helper.Bridge
	defaults   *helper.DefaultsLoader
	poller     *poller.Poller
	dispatcher *command.Dispatcher
	attract    *attractor.Machine
	seq        *sequencer.Sequencer
	syncer     *synchronizer.Synchronizer
	renderer   Renderer
	hub        *display.Hub
	display    *display.Server
	events     EventSink

	runCtx        context.Context
	cancel        context.CancelFunc
	done          chan struct{}
	pollerStarted atomic.Bool
	workers       sync.WaitGroup

	// loop-owned
	state          *State
	attractedSince time.Time
}

var (
	_ command.Actions          = (*Client)(nil)
	_ command.PermissionSource = (*Client)(nil)
)

// NewClient wires the components. Nothing runs until Start.
func NewClient(cfg *Config, log logger.Logger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	c := &Client{
		cfg:    cfg,
		logger: log,
		state:  newState(),
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.clock == nil {
		c.clock = eventloop.RealClock()
	}

	if c.http == nil {
		c.http = &http.Client{}
	}

	if c.sched == nil {
		c.loop = eventloop.New(c.clock, log)
		c.sched = c.loop
		c.exec = c.loop
	}

	if c.events == nil {
		c.events = nopSink{}
	}

	c.bridge = helper.NewBridge(helper.Config{
		Endpoint: normalizeEndpoint(cfg.HelperAddress),
		Timeout:  cfg.HelperTimeout.Std(),
		HTTP:     c.http,
		Logger:   log,
		Executor: c.exec,
		OnResult: c.helperResult(errorKeyHelper),
	})

	c.defaults = helper.NewDefaultsLoader(c.bridge, cfg.DefaultsTimeout.Std(), cfg.DefaultsRetryDelay.Std(), log)

	if cfg.AutorunAddress != "" {
		c.autorun = helper.NewBridge(helper.Config{
			Endpoint: normalizeEndpoint(cfg.AutorunAddress),
			Timeout:  cfg.HelperTimeout.Std(),
			HTTP:     c.http,
			Logger:   log,
			Executor: c.exec,
			OnResult: c.helperResult(errorKeyAutorun),
		})
	}

	if c.renderer == nil {
		c.hub = display.NewHub(c.exec, display.Callbacks{
			OnInput: c.onInput,
			OnEnded: c.onEnded,
			OnReady: c.onRendererReady,
		}, log)
		c.renderer = c.hub

		srv, err := display.NewServer(display.Config{
			ListenAddr:     cfg.Display.ListenAddr,
			AllowedOrigins: cfg.Display.AllowedOrigins,
			Hub:            c.hub,
			Executor:       c.exec,
			State:          func() interface{} { return c.stateView() },
			Logger:         log,
		})
		if err != nil {
			return nil, err
		}

		c.display = srv
	}

	c.seq = sequencer.New(sequencer.Config{
		Scheduler:     c.sched,
		Renderer:      c.renderer,
		ImageDuration: cfg.ImageDuration.Std(),
		Autoplay:      cfg.autoplay(),
		Logger:        log,
	})

	c.syncer = synchronizer.New(synchronizer.Config{
		Scheduler: c.sched,
		Player:    c.seq,
		Logger:    log,
		OnStart:   c.onSyncStarted,
	})

	c.attract = attractor.New(attractor.Config{
		Timeout:   cfg.AttractorTimeout.Std(),
		Scheduler: c.sched,
		Logger:    log,
		OnEnter:   c.enterAttractor,
		OnExit:    c.exitAttractor,
	})

	c.dispatcher = command.NewDispatcher(c, c, log)
	c.dispatcher.OnExecuted(c.onCommandExecuted)

	p, err := poller.New(&poller.Config{
		Interval:       poller.IntervalFor(cfg.DeviceClass, cfg.PollInterval.Std()),
		RequestTimeout: cfg.RequestTimeout.Std(),
		HTTP:           c.http,
		Clock:          c.clock,
		Executor:       c.exec,
		Build:          c.buildPing,
		OnUpdate:       c.ApplyUpdate,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}

	c.poller = p

	if cfg.ServerAddress != "" {
		c.state.ServerEndpoint = normalizeEndpoint(cfg.ServerAddress)
	}

	return c, nil
}

// Start runs the loop, the display server and the defaults fetch. The poll
// loop starts once the first defaults have been applied.
func (c *Client) Start(ctx context.Context) error {
	c.runCtx, c.cancel = context.WithCancel(ctx)

	c.connectAnalytics(c.runCtx)

	if c.loop != nil {
		go func() {
			defer close(c.done)

			if err := c.loop.Run(c.runCtx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error().Err(err).Msg("Event loop stopped")
			}
		}()
	}

	if c.display != nil {
		if err := c.display.Start(c.runCtx); err != nil {
			c.cancel()
			return err
		}
	}

	c.exec.Post(c.attract.Start)

	c.logger.Info().
		Str("helper", c.bridge.Endpoint()).
		Str("device_class", c.cfg.DeviceClass).
		Msg("Fetching defaults from helper")

	c.defaults.LoadAsync(c.runCtx, c.exec, c.applyDefaults)

	return nil
}

// Stop cancels background work and waits for it within ctx.
func (c *Client) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}

	var errs []error

	if c.pollerStarted.Load() {
		if err := c.poller.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if c.display != nil {
		if err := c.display.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	c.bridge.Wait()

	if c.autorun != nil {
		c.autorun.Wait()
	}

	c.workers.Wait()

	if err := c.events.Close(); err != nil {
		errs = append(errs, err)
	}

	if c.loop != nil {
		select {
		case <-c.done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	return errors.Join(errs...)
}

// Done is closed when the client's own event loop exits.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Snapshot returns the diagnostic state, evaluated on the loop.
func (c *Client) Snapshot(ctx context.Context) (StateView, error) {
	result := make(chan StateView, 1)

	if !c.exec.Post(func() { result <- c.stateView() }) {
		return StateView{}, errLoopStopped
	}

	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		return StateView{}, ctx.Err()
	}
}

func (c *Client) context() context.Context {
	if c.runCtx == nil {
		return context.Background()
	}

	return c.runCtx
}

func (c *Client) connectAnalytics(ctx context.Context) {
	cfg := c.cfg.Analytics
	if cfg == nil || !cfg.Enabled {
		return
	}

	if _, isNop := c.events.(nopSink); !isNop {
		return
	}

	pub, err := analytics.Connect(ctx, cfg, c.logger)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Analytics disabled, failed to connect to NATS")
		return
	}

	c.events = pub
}

// applyDefaults merges the helper's defaults and starts polling the first
// time around.
func (c *Client) applyDefaults(update *models.Update) {
	c.ApplyUpdate(update, nil)
	c.state.DefaultsLoaded = true

	c.logger.Info().
		Str("id", c.state.Identity.ID).
		Str("type", c.state.Identity.Type).
		Str("server", c.state.ServerEndpoint).
		Msg("Defaults applied")

	if c.pollerStarted.CompareAndSwap(false, true) {
		ctx := c.context()

		c.workers.Add(1)

		go func() {
			defer c.workers.Done()

			if err := c.poller.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error().Err(err).Msg("Poll loop stopped")
			}
		}()
	}
}

type nopSink struct{}

func (nopSink) AttractorStarted(analytics.EventData) {}
func (nopSink) AttractorStopped(analytics.EventData) {}
func (nopSink) SyncStarted(analytics.EventData)      {}
func (nopSink) CommandExecuted(analytics.EventData)  {}
func (nopSink) Close() error                         { return nil }
