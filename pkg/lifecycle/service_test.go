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

package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/exhibitd/pkg/logger"
)

var errStartFailed = errors.New("start failed")

type fakeService struct {
	startErr error
	started  bool
	stopped  bool
}

func (f *fakeService) Start(context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeService) Stop(context.Context) error {
	f.stopped = true
	return nil
}

func TestRunService_StopsWhenDoneCloses(t *testing.T) {
	svc := &fakeService{}
	done := make(chan struct{})

	close(done)

	err := RunService(context.Background(), &ServiceOptions{
		ServiceName: "exhibit-agent",
		Service:     svc,
		Logger:      logger.NewTestLogger(),
		Done:        done,
	})

	require.NoError(t, err)
	assert.True(t, svc.started)
	assert.True(t, svc.stopped)
}

func TestRunService_StopsOnContextCancel(t *testing.T) {
	svc := &fakeService{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, RunService(ctx, &ServiceOptions{ServiceName: "x", Service: svc}))
	assert.True(t, svc.stopped)
}

func TestRunService_StartFailure(t *testing.T) {
	svc := &fakeService{startErr: errStartFailed}

	err := RunService(context.Background(), &ServiceOptions{ServiceName: "x", Service: svc})

	require.ErrorIs(t, err, errStartFailed)
	assert.False(t, svc.stopped)
}

func TestCreateComponentLogger(t *testing.T) {
	l, err := CreateComponentLogger(context.Background(), "agent", &logger.Config{Level: "warn"})
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = CreateComponentLogger(context.Background(), "agent", &logger.Config{Level: "loud"})
	require.Error(t, err)
}
