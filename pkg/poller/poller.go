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

// Package poller pings the control server on a fixed period and hands each
// response to the update consumer on the event loop.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
)

const (
	// PingPath is appended to the server endpoint.
	PingPath = "/system/ping"

	defaultRequestTimeout = 3 * time.Second
	maxResponseBytes      = 4 << 20
)

// BuildFunc runs on the loop and returns the request for this tick. ok is
// false when there is nowhere to send it.
type BuildFunc func() (endpoint string, req *models.PingRequest, ok bool)

// UpdateFunc runs on the loop with every decoded response. err carries the
// fields validation dropped; the update is still usable.
type UpdateFunc func(update *models.Update, err error)

type Config struct {
	Interval       time.Duration
	RequestTimeout time.Duration
	HTTP           *http.Client
	Clock          eventloop.Clock
	Executor       eventloop.Executor
	Build          BuildFunc
	OnUpdate       UpdateFunc
	Logger         logger.Logger
}

// Poller issues at most one ping at a time. Ticks come from a fixed-period
// ticker; a tick that finds the previous ping still running is skipped.
type Poller struct {
	clock     eventloop.Clock
	exec      eventloop.Executor
	client    *http.Client
	timeout   time.Duration
	build     BuildFunc
	onUpdate  UpdateFunc
	logger    logger.Logger
	intervals chan time.Duration
	done      chan struct{}
	initial   time.Duration

	// loop-owned
	interval time.Duration
	inFlight bool
}

func New(cfg *Config) (*Poller, error) {
	if cfg.Executor == nil {
		return nil, errMissingExecutor
	}

	if cfg.Build == nil {
		return nil, errMissingBuilder
	}

	clock := cfg.Clock
	if clock == nil {
		clock = eventloop.RealClock()
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	client := cfg.HTTP
	if client == nil {
		client = &http.Client{}
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	onUpdate := cfg.OnUpdate
	if onUpdate == nil {
		onUpdate = func(*models.Update, error) {}
	}

	return &Poller{
		clock:     clock,
		exec:      cfg.Executor,
		client:    client,
		timeout:   timeout,
		build:     cfg.Build,
		onUpdate:  onUpdate,
		logger:    log,
		intervals: make(chan time.Duration, 1),
		done:      make(chan struct{}),
		initial:   interval,
		interval:  interval,
	}, nil
}

// Start runs the ticker until the context is cancelled. The first tick fires
// immediately.
func (p *Poller) Start(ctx context.Context) error {
	defer close(p.done)

	interval := p.initial
	ticker := p.clock.Ticker(interval)

	defer func() { ticker.Stop() }()

	p.logger.Info().Dur("interval", interval).Msg("Starting poll loop")

	p.exec.Post(func() { p.tick(ctx) })

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poll loop stopping due to context cancellation")
			return ctx.Err()
		case d := <-p.intervals:
			if d == interval {
				continue
			}

			ticker.Stop()
			interval = d
			ticker = p.clock.Ticker(interval)

			p.logger.Info().Dur("interval", interval).Msg("Poll interval changed")
		case <-ticker.Chan():
			p.exec.Post(func() { p.tick(ctx) })
		}
	}
}

// Stop waits for Start to return. Cancel the context passed to Start first.
func (p *Poller) Stop(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetInterval retunes the ticker. Must be called on the loop.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 || d == p.interval {
		return
	}

	p.interval = d

	// Keep only the latest pending value.
	select {
	case <-p.intervals:
	default:
	}

	p.intervals <- d
}

// Interval returns the configured period. Must be called on the loop.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// InFlight reports whether a ping is outstanding. Must be called on the loop.
func (p *Poller) InFlight() bool {
	return p.inFlight
}

func (p *Poller) tick(ctx context.Context) {
	if p.inFlight {
		p.logger.Debug().Msg("Previous ping still in flight, skipping tick")
		recordOutcome(ctx, outcomeSkipped)

		return
	}

	endpoint, req, ok := p.build()
	if !ok || strings.TrimSpace(endpoint) == "" {
		recordOutcome(ctx, outcomeNoEndpoint)
		return
	}

	p.inFlight = true

	go func() {
		result, err := p.ping(ctx, endpoint, req)

		p.exec.Post(func() {
			p.inFlight = false

			if err != nil {
				p.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("Ping failed")
				return
			}

			p.onUpdate(result.update, result.invalid)
		})
	}()
}

type pingResult struct {
	update  *models.Update
	invalid error
}

func (p *Poller) ping(ctx context.Context, endpoint string, req *models.PingRequest) (*pingResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ping: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := strings.TrimRight(endpoint, "/") + PingPath

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create ping request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	start := p.clock.Now()

	resp, err := p.client.Do(httpReq)
	if err != nil {
		recordOutcome(ctx, outcomeTransport)
		return nil, fmt.Errorf("ping request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	recordLatency(ctx, p.clock.Now().Sub(start))

	if resp.StatusCode != http.StatusOK {
		recordOutcome(ctx, outcomeBadStatus)
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		recordOutcome(ctx, outcomeTransport)
		return nil, fmt.Errorf("failed to read ping response: %w", err)
	}

	update, validationErr := models.ParseUpdate(body)
	if update == nil {
		recordOutcome(ctx, outcomeUndecodable)
		return nil, validationErr
	}

	recordOutcome(ctx, outcomeOK)

	return &pingResult{update: update, invalid: validationErr}, nil
}
