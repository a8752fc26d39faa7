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

// Package sequencer owns the playlist, decides which item is presented and
// when presentation moves on.
package sequencer

import (
	"slices"
	"time"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
)

// DefaultImageDuration applies to images without their own duration.
const DefaultImageDuration = 30 * time.Second

// Presentation is one load of an item. Token identifies the load so that a
// completion signal from an earlier load can be told apart.
type Presentation struct {
	Token  uint64             `json:"token"`
	Index  int                `json:"index"`
	Item   models.ContentItem `json:"item"`
	Paused bool               `json:"paused"`
}

// Renderer presents items. It is called on the loop and must not block.
type Renderer interface {
	Present(p Presentation)
	Clear()
	Play()
	Pause()
	Seek(direction string, fraction float64)
	Replay(token uint64)
}

type Config struct {
	Scheduler     eventloop.Scheduler
	Renderer      Renderer
	ImageDuration time.Duration
	Autoplay      bool
	Logger        logger.Logger
}

// Sequencer is loop-owned: every method must be called on the loop.
type Sequencer struct {
	sched    eventloop.Scheduler
	renderer Renderer
	logger   logger.Logger

	items         []models.ContentItem
	active        int
	token         uint64
	imageTimer    eventloop.Timer
	imageDuration time.Duration
	autoplay      bool
	attracting    bool
	paused        bool
}

func New(cfg Config) *Sequencer {
	d := cfg.ImageDuration
	if d <= 0 {
		d = DefaultImageDuration
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Sequencer{
		sched:         cfg.Scheduler,
		renderer:      cfg.Renderer,
		logger:        log,
		imageDuration: d,
		autoplay:      cfg.Autoplay,
	}
}

// SetPlaylist replaces the playlist when it differs from the current one and
// presents the first item. It reports whether anything changed.
func (s *Sequencer) SetPlaylist(items []models.ContentItem) bool {
	if slices.EqualFunc(s.items, items, itemsEqual) {
		return false
	}

	s.cancelImageTimer()
	s.items = slices.Clone(items)
	s.active = 0

	s.logger.Info().Int("items", len(items)).Msg("Playlist replaced")

	if len(s.items) == 0 {
		s.token++
		s.renderer.Clear()

		return true
	}

	if !s.items[0].Supported() {
		s.logger.Warn().Str("source", s.items[0].Source).Msg("First playlist item has an unsupported media type")
		s.token++
		s.renderer.Clear()

		return true
	}

	s.present(0, false)

	return true
}

// GotoSource presents item i. Out-of-range or unsupported references are
// ignored and the current item keeps presenting.
func (s *Sequencer) GotoSource(i int) bool {
	if i < 0 || i >= len(s.items) {
		s.logger.Warn().Int("index", i).Int("items", len(s.items)).Msg("Ignoring out of range content reference")
		return false
	}

	if !s.items[i].Supported() {
		s.logger.Warn().Int("index", i).Str("source", s.items[i].Source).Msg("Ignoring unsupported content reference")
		return false
	}

	s.present(i, false)

	return true
}

// Advance moves to (active+1) mod length. A single looping item replays in place.
func (s *Sequencer) Advance() {
	s.step(1)
}

// Previous moves to (active-1) mod length.
func (s *Sequencer) Previous() {
	s.step(-1)
}

func (s *Sequencer) step(delta int) {
	n := len(s.items)
	if n == 0 {
		return
	}

	if n == 1 {
		s.replay()
		return
	}

	next := ((s.active+delta)%n + n) % n

	// Skip unsupported items, giving up after one full lap.
	for tries := 0; tries < n && !s.items[next].Supported(); tries++ {
		next = ((next+delta)%n + n) % n
	}

	if !s.items[next].Supported() {
		return
	}

	s.present(next, false)
}

// Prepare loads the active item paused so a later Play starts without load latency.
func (s *Sequencer) Prepare() bool {
	if len(s.items) == 0 || !s.items[s.active].Supported() {
		return false
	}

	s.present(s.active, true)

	return true
}

// Play resumes the active item.
func (s *Sequencer) Play() {
	if len(s.items) == 0 {
		return
	}

	s.paused = false
	s.renderer.Play()

	if s.items[s.active].MediaType == models.MediaTypeImage && s.imageTimer == nil {
		s.armImageTimer(s.items[s.active])
	}
}

// Pause holds the active item. Image advance is suspended until Play.
func (s *Sequencer) Pause() {
	if len(s.items) == 0 {
		return
	}

	s.paused = true
	s.cancelImageTimer()
	s.renderer.Pause()
}

func (s *Sequencer) Seek(direction string, fraction float64) {
	if len(s.items) == 0 || !s.items[s.active].Loops() {
		return
	}

	s.renderer.Seek(direction, fraction)
}

// MediaEnded handles the renderer's end-of-media signal for the load with token.
func (s *Sequencer) MediaEnded(token uint64) {
	if token != s.token || len(s.items) == 0 {
		s.logger.Debug().Uint64("token", token).Uint64("current", s.token).Msg("Ignoring stale completion")
		return
	}

	if !s.items[s.active].Loops() {
		return
	}

	s.complete()
}

func (s *Sequencer) complete() {
	if s.autoplay || s.attracting {
		s.Advance()
		return
	}

	s.replay()
}

func (s *Sequencer) replay() {
	item := s.items[s.active]

	if item.MediaType == models.MediaTypeImage {
		s.cancelImageTimer()

		if !s.paused {
			s.armImageTimer(item)
		}

		return
	}

	s.renderer.Replay(s.token)
}

func (s *Sequencer) present(i int, paused bool) {
	s.cancelImageTimer()

	s.token++
	s.active = i
	s.paused = paused

	item := s.items[i]

	s.renderer.Present(Presentation{
		Token:  s.token,
		Index:  i,
		Item:   item,
		Paused: paused,
	})

	if item.MediaType == models.MediaTypeImage && !paused {
		s.armImageTimer(item)
	}
}

func (s *Sequencer) armImageTimer(item models.ContentItem) {
	d := item.Duration
	if d <= 0 {
		d = s.imageDuration
	}

	token := s.token

	s.imageTimer = s.sched.AfterFunc(d, func() {
		s.imageTimer = nil

		if token != s.token {
			return
		}

		s.complete()
	})
}

func (s *Sequencer) cancelImageTimer() {
	if s.imageTimer != nil {
		s.imageTimer.Stop()
		s.imageTimer = nil
	}
}

// SetAutoplay sets whether completion advances to the next item.
func (s *Sequencer) SetAutoplay(on bool) {
	s.autoplay = on
}

// SetAttracting forces advance on completion while the attractor runs.
func (s *Sequencer) SetAttracting(on bool) {
	s.attracting = on
}

// SetImageDuration applies from the next image load.
func (s *Sequencer) SetImageDuration(d time.Duration) {
	if d > 0 {
		s.imageDuration = d
	}
}

func (s *Sequencer) Autoplay() bool {
	return s.autoplay
}

// Active returns the active index and item. ok is false for an empty playlist.
func (s *Sequencer) Active() (int, models.ContentItem, bool) {
	if len(s.items) == 0 {
		return 0, models.ContentItem{}, false
	}

	return s.active, s.items[s.active], true
}

// Token returns the token of the latest load.
func (s *Sequencer) Token() uint64 {
	return s.token
}

// Playlist returns a copy of the items.
func (s *Sequencer) Playlist() []models.ContentItem {
	return slices.Clone(s.items)
}

func itemsEqual(a, b models.ContentItem) bool {
	return a.Source == b.Source &&
		a.Kind == b.Kind &&
		a.MediaType == b.MediaType &&
		a.Duration == b.Duration &&
		slices.Equal(a.Annotations, b.Annotations)
}
