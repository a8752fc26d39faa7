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

// Package command parses the command tokens a control server sends and
// dispatches them, in order, to the runtime.
package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errEmptyToken       = errors.New("empty command token")
	errUnknownCommand   = errors.New("unknown command")
	errMalformedCommand = errors.New("malformed command")
)

// Command is one parsed token. The set of implementations is closed.
type Command interface {
	Name() string
	isCommand()
}

type (
	RefreshPage    struct{}
	ReloadDefaults struct{}
	Restart        struct{}
	Shutdown       struct{}
	SleepDisplay   struct{}
	WakeDisplay    struct{}
	NextClip       struct{}
	PreviousClip   struct{}
	PlayVideo      struct{}
	PauseVideo     struct{}
	ClearErrors    struct{}
)

// GotoClip jumps to a playlist position.
type GotoClip struct {
	Index int
}

// Direction of a relative seek.
type Direction string

const (
	Forward Direction = "forward"
	Back    Direction = "back"
)

// SeekVideo moves the playhead by a fraction of the item's duration.
type SeekVideo struct {
	Direction Direction
	Fraction  float64
}

// BeginSynchronization starts playback at an absolute epoch-millisecond instant.
type BeginSynchronization struct {
	TargetMillis int64
}

func (RefreshPage) Name() string          { return "refresh_page" }
func (ReloadDefaults) Name() string       { return "reloadDefaults" }
func (Restart) Name() string              { return "restart" }
func (Shutdown) Name() string             { return "shutdown" }
func (SleepDisplay) Name() string         { return "sleepDisplay" }
func (WakeDisplay) Name() string          { return "wakeDisplay" }
func (NextClip) Name() string             { return "nextClip" }
func (PreviousClip) Name() string         { return "previousClip" }
func (PlayVideo) Name() string            { return "playVideo" }
func (PauseVideo) Name() string           { return "pauseVideo" }
func (ClearErrors) Name() string          { return "clearErrors" }
func (GotoClip) Name() string             { return "gotoClip" }
func (SeekVideo) Name() string            { return "seekVideo" }
func (BeginSynchronization) Name() string { return "beginSynchronization" }

func (RefreshPage) isCommand()          {}
func (ReloadDefaults) isCommand()       {}
func (Restart) isCommand()              {}
func (Shutdown) isCommand()             {}
func (SleepDisplay) isCommand()         {}
func (WakeDisplay) isCommand()          {}
func (NextClip) isCommand()             {}
func (PreviousClip) isCommand()         {}
func (PlayVideo) isCommand()            {}
func (PauseVideo) isCommand()           {}
func (ClearErrors) isCommand()          {}
func (GotoClip) isCommand()             {}
func (SeekVideo) isCommand()            {}
func (BeginSynchronization) isCommand() {}

//nolint:gochecknoglobals // lookup table
var bareCommands = map[string]Command{
	"refresh_page":   RefreshPage{},
	"reloadDefaults": ReloadDefaults{},
	"restart":        Restart{},
	"shutdown":       Shutdown{},
	"power_off":      Shutdown{},
	"sleepDisplay":   SleepDisplay{},
	"wakeDisplay":    WakeDisplay{},
	"power_on":       WakeDisplay{},
	"nextClip":       NextClip{},
	"previousClip":   PreviousClip{},
	"playVideo":      PlayVideo{},
	"pauseVideo":     PauseVideo{},
	"clearErrors":    ClearErrors{},
}

// Parse turns a token into a Command. Bare names are matched whole, so
// "refresh_page" is not read as "refresh" with an argument.
func Parse(token string) (Command, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errEmptyToken
	}

	if cmd, ok := bareCommands[token]; ok {
		return cmd, nil
	}

	parts := strings.Split(token, "_")
	name, args := parts[0], parts[1:]

	switch name {
	case "gotoClip":
		return parseGotoClip(token, args)
	case "seekVideo":
		return parseSeekVideo(token, args)
	case "beginSynchronization":
		return parseBeginSynchronization(token, args)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCommand, token)
	}
}

func parseGotoClip(token string, args []string) (Command, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: %q", errMalformedCommand, token)
	}

	index, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errMalformedCommand, token, err)
	}

	return GotoClip{Index: index}, nil
}

func parseSeekVideo(token string, args []string) (Command, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: %q", errMalformedCommand, token)
	}

	dir := Direction(args[0])
	if dir != Forward && dir != Back {
		return nil, fmt.Errorf("%w: %q: direction must be forward or back", errMalformedCommand, token)
	}

	fraction, err := strconv.ParseFloat(args[1], 64)
	if err != nil || math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return nil, fmt.Errorf("%w: %q: fraction must be within [0, 1]", errMalformedCommand, token)
	}

	return SeekVideo{Direction: dir, Fraction: fraction}, nil
}

func parseBeginSynchronization(token string, args []string) (Command, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: %q", errMalformedCommand, token)
	}

	target, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(target) || math.IsInf(target, 0) {
		return nil, fmt.Errorf("%w: %q: bad timestamp", errMalformedCommand, token)
	}

	return BeginSynchronization{TargetMillis: int64(target)}, nil
}
