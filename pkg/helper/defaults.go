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

package helper

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
)

const (
	ActionGetDefaults = "getDefaults"

	DefaultDefaultsTimeout = 500 * time.Millisecond
	DefaultRetryDelay      = 500 * time.Millisecond
)

// DefaultsLoader fetches the startup defaults from the helper. Without them
// the client cannot identify itself, so it retries until it succeeds or the
// context ends.
type DefaultsLoader struct {
	bridge     *Bridge
	timeout    time.Duration
	retryDelay time.Duration
	logger     logger.Logger
}

func NewDefaultsLoader(bridge *Bridge, timeout, retryDelay time.Duration, log logger.Logger) *DefaultsLoader {
	if timeout <= 0 {
		timeout = DefaultDefaultsTimeout
	}

	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &DefaultsLoader{
		bridge:     bridge,
		timeout:    timeout,
		retryDelay: retryDelay,
		logger:     log,
	}
}

// Load blocks until a defaults document has been fetched and decoded.
func (d *DefaultsLoader) Load(ctx context.Context) (*models.Update, error) {
	for attempt := 1; ; attempt++ {
		update, err := d.fetch(ctx)
		if err == nil {
			d.logger.Info().Int("attempt", attempt).Msg("Loaded defaults from helper")

			return update, nil
		}

		d.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", d.retryDelay).
			Msg("Failed to load defaults, retrying")

		timer := time.NewTimer(d.retryDelay)

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// LoadAsync runs Load in the background and hands the result to fn on the executor.
func (d *DefaultsLoader) LoadAsync(ctx context.Context, exec eventloop.Executor, fn func(*models.Update)) {
	go func() {
		update, err := d.Load(ctx)
		if err != nil {
			return
		}

		exec.Post(func() { fn(update) })
	}()
}

func (d *DefaultsLoader) fetch(ctx context.Context) (*models.Update, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body, err := d.bridge.Do(reqCtx, models.HelperRequest{Action: ActionGetDefaults})
	if err != nil {
		return nil, err
	}

	update, err := models.ParseUpdate(body)
	if update == nil {
		return nil, fmt.Errorf("invalid defaults response: %w", err)
	}

	if err != nil {
		d.logger.Warn().Err(err).Msg("Dropped invalid fields from defaults response")
	}

	return update, nil
}
