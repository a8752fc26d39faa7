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

// Package synchronizer starts playback at an agreed wall-clock instant so
// that several displays begin together.
package synchronizer

import (
	"time"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
)

// Player is the part of the sequencer the synchronizer drives.
type Player interface {
	Prepare() bool
	Play()
}

type Config struct {
	Scheduler eventloop.Scheduler
	Player    Player
	Logger    logger.Logger
	// OnStart runs after playback was started for a directive.
	OnStart func(d models.SyncDirective, late time.Duration)
}

// Synchronizer is loop-owned: every method must be called on the loop.
type Synchronizer struct {
	sched   eventloop.Scheduler
	player  Player
	logger  logger.Logger
	onStart func(models.SyncDirective, time.Duration)

	peers    []string
	prepared bool
	pending  *models.SyncDirective
	timer    eventloop.Timer
}

func New(cfg Config) *Synchronizer {
	log := cfg.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	onStart := cfg.OnStart
	if onStart == nil {
		onStart = func(models.SyncDirective, time.Duration) {}
	}

	return &Synchronizer{
		sched:   cfg.Scheduler,
		player:  cfg.Player,
		logger:  log,
		onStart: onStart,
	}
}

// Prepare records the peer group and preloads the active item paused.
func (s *Synchronizer) Prepare(peers []string) {
	s.peers = append([]string(nil), peers...)
	s.prepared = s.player.Prepare()

	s.logger.Info().Strs("peers", s.peers).Bool("prepared", s.prepared).Msg("Prepared for synchronized start")
}

// Begin schedules playback for the directive's target instant, replacing any
// pending directive. A target in the past starts playback right away.
func (s *Synchronizer) Begin(d models.SyncDirective) {
	s.Cancel()

	if len(d.PeerIDs) == 0 {
		d.PeerIDs = s.peers
	}

	delay := d.Target().Sub(s.sched.Now())
	if delay < 0 {
		s.logger.Warn().Dur("late_by", -delay).Msg("Synchronization target already passed, starting now")
	}

	directive := d
	s.pending = &directive
	s.timer = s.sched.AfterFunc(max(delay, 0), func() {
		s.timer = nil
		s.fire(directive)
	})

	s.logger.Info().Int64("target_ms", d.TargetTimestamp).Dur("delay", delay).Msg("Synchronized start scheduled")
}

// Cancel drops a pending directive.
func (s *Synchronizer) Cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	s.pending = nil
}

// Leave drops the peer group together with any preload and pending directive.
func (s *Synchronizer) Leave() {
	s.Cancel()
	s.peers = nil
	s.prepared = false
}

// Holding reports whether the display is parked for a synchronized start:
// preloaded for its peer group, or waiting on a directive. Nothing else may
// start playback while it holds.
func (s *Synchronizer) Holding() bool {
	return s.prepared || s.pending != nil
}

// Pending returns the directive waiting to fire, if any.
func (s *Synchronizer) Pending() (models.SyncDirective, bool) {
	if s.pending == nil {
		return models.SyncDirective{}, false
	}

	return *s.pending, true
}

func (s *Synchronizer) fire(d models.SyncDirective) {
	s.pending = nil

	if !s.prepared {
		s.player.Prepare()
	}

	s.prepared = false
	s.player.Play()

	late := s.sched.Now().Sub(d.Target())
	if late < 0 {
		late = 0
	}

	s.logger.Info().Int64("target_ms", d.TargetTimestamp).Dur("late", late).Msg("Synchronized start")
	s.onStart(d, late)
}
