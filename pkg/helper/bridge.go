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

// Package helper talks to the local companion process that performs device
// actions (display power, restart, shutdown) and serves the startup defaults.
package helper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
)

const (
	// DefaultTimeout applies to actions without a latency class of their own.
	DefaultTimeout = 2 * time.Second

	gestureTimeout = 25 * time.Millisecond
	rotateTimeout  = 50 * time.Millisecond
	volumeTimeout  = 250 * time.Millisecond

	maxResponseBytes = 1 << 20
)

// ResultFunc receives the outcome of a fire-and-forget request on the loop.
type ResultFunc func(action string, err error)

// Config controls how the bridge reaches the helper.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	HTTP     *http.Client
	Logger   logger.Logger
	Executor eventloop.Executor
	OnResult ResultFunc
}

// Bridge sends one-way requests to the helper. Send never blocks the caller.
type Bridge struct {
	mu       sync.RWMutex
	endpoint string

	timeout  time.Duration
	client   *http.Client
	logger   logger.Logger
	exec     eventloop.Executor
	onResult ResultFunc
	wg       sync.WaitGroup
}

func NewBridge(cfg Config) *Bridge {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := cfg.HTTP
	if client == nil {
		client = &http.Client{}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Bridge{
		endpoint: cfg.Endpoint,
		timeout:  timeout,
		client:   client,
		logger:   log,
		exec:     cfg.Executor,
		onResult: cfg.OnResult,
	}
}

// Endpoint returns the current helper URL.
func (b *Bridge) Endpoint() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.endpoint
}

// SetEndpoint replaces the helper URL used by subsequent requests.
func (b *Bridge) SetEndpoint(endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
}

// TimeoutFor returns the request timeout for an action. High-frequency,
// idempotent actions get the shortest budgets.
func (b *Bridge) TimeoutFor(action string) time.Duration {
	switch {
	case strings.HasPrefix(action, "gesture"):
		return gestureTimeout
	case strings.HasPrefix(action, "rotate"):
		return rotateTimeout
	case strings.HasPrefix(action, "setVolume"):
		return volumeTimeout
	default:
		return b.timeout
	}
}

// Send posts the request in the background. The outcome is delivered to
// OnResult on the executor, if both are configured.
func (b *Bridge) Send(ctx context.Context, action string, params map[string]interface{}) {
	req := models.HelperRequest{Action: action, Params: params}

	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		reqCtx, cancel := context.WithTimeout(ctx, b.TimeoutFor(action))
		defer cancel()

		_, err := b.Do(reqCtx, req)
		if err != nil {
			b.logger.Warn().Err(err).Str("action", action).Msg("Helper request failed")
		} else {
			b.logger.Debug().Str("action", action).Msg("Helper request delivered")
		}

		if b.exec != nil && b.onResult != nil {
			b.exec.Post(func() { b.onResult(action, err) })
		}
	}()
}

// Wait blocks until every in-flight Send has finished.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// Do performs a single request and returns the response body. The caller
// owns the deadline.
func (b *Bridge) Do(ctx context.Context, req models.HelperRequest) ([]byte, error) {
	endpoint := b.Endpoint()
	if endpoint == "" {
		return nil, errEmptyEndpoint
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal helper request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create helper request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("helper request %s failed: %w", req.Action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read helper response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	return body, nil
}
