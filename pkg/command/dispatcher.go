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

//go:generate mockgen -destination=mock_command.go -package=command github.com/carverauto/exhibitd/pkg/command Actions,PermissionSource

package command

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
)

// Actions is what commands act on. Every method is called on the loop.
type Actions interface {
	RefreshPage()
	ReloadDefaults()
	Restart()
	Shutdown()
	SleepDisplay()
	WakeDisplay()
	GotoClip(index int)
	NextClip()
	PreviousClip()
	PlayVideo()
	PauseVideo()
	SeekVideo(direction Direction, fraction float64)
	BeginSynchronization(targetMillis int64)
	ClearErrors()
}

// PermissionSource exposes the locally granted permissions.
type PermissionSource interface {
	Permissions() models.PermissionMap
}

// ExecutedFunc is notified after each command runs.
type ExecutedFunc func(cmd Command)

const (
	meterName          = "exhibitd.command"
	metricCommandTotal = "exhibitd_commands_total"

	outcomeExecuted  = "executed"
	outcomeDenied    = "denied"
	outcomeMalformed = "malformed"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	commandCounter metric.Int64Counter
)

func initMeter() {
	counter, err := otel.Meter(meterName).Int64Counter(
		metricCommandTotal,
		metric.WithDescription("Command tokens by name and outcome"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	commandCounter = counter
}

func record(ctx context.Context, name, outcome string) {
	meterOnce.Do(initMeter)

	if commandCounter == nil {
		return
	}

	commandCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("outcome", outcome),
	))
}

// Dispatcher runs command tokens strictly in order.
type Dispatcher struct {
	actions    Actions
	perms      PermissionSource
	logger     logger.Logger
	onExecuted ExecutedFunc
}

func NewDispatcher(actions Actions, perms PermissionSource, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Dispatcher{
		actions: actions,
		perms:   perms,
		logger:  log,
	}
}

// OnExecuted registers a hook called after every executed command.
func (d *Dispatcher) OnExecuted(fn ExecutedFunc) {
	d.onExecuted = fn
}

// Dispatch executes tokens in array order and returns the commands that ran.
// Unknown or malformed tokens are logged and skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string) []Command {
	executed := make([]Command, 0, len(tokens))

	for _, token := range tokens {
		cmd, err := Parse(token)
		if err != nil {
			d.logger.Warn().Err(err).Str("token", token).Msg("Skipping command")
			record(ctx, "unknown", outcomeMalformed)

			continue
		}

		if !d.execute(cmd) {
			record(ctx, cmd.Name(), outcomeDenied)
			continue
		}

		record(ctx, cmd.Name(), outcomeExecuted)

		executed = append(executed, cmd)

		if d.onExecuted != nil {
			d.onExecuted(cmd)
		}
	}

	return executed
}

// execute reports false when the command was refused locally.
func (d *Dispatcher) execute(cmd Command) bool {
	d.logger.Debug().Str("command", cmd.Name()).Msg("Executing command")

	switch c := cmd.(type) {
	case RefreshPage:
		if d.perms == nil || !d.perms.Permissions().Allowed(models.PermissionRefresh) {
			d.logger.Info().Msg("Ignoring refresh_page: refresh not permitted")
			return false
		}

		d.actions.RefreshPage()
	case ReloadDefaults:
		d.actions.ReloadDefaults()
	case Restart:
		d.actions.Restart()
	case Shutdown:
		d.actions.Shutdown()
	case SleepDisplay:
		d.actions.SleepDisplay()
	case WakeDisplay:
		d.actions.WakeDisplay()
	case GotoClip:
		d.actions.GotoClip(c.Index)
	case NextClip:
		d.actions.NextClip()
	case PreviousClip:
		d.actions.PreviousClip()
	case PlayVideo:
		d.actions.PlayVideo()
	case PauseVideo:
		d.actions.PauseVideo()
	case SeekVideo:
		d.actions.SeekVideo(c.Direction, c.Fraction)
	case BeginSynchronization:
		d.actions.BeginSynchronization(c.TargetMillis)
	case ClearErrors:
		d.actions.ClearErrors()
	default:
		d.logger.Warn().Str("command", cmd.Name()).Msg("No handler for command")
		return false
	}

	return true
}
