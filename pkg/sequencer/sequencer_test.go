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

package sequencer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
)

type fakeRenderer struct {
	presented []Presentation
	replays   []uint64
	plays     int
	pauses    int
	clears    int
	seeks     []string
}

func (f *fakeRenderer) Present(p Presentation) { f.presented = append(f.presented, p) }
func (f *fakeRenderer) Clear()                 { f.clears++ }
func (f *fakeRenderer) Play()                  { f.plays++ }
func (f *fakeRenderer) Pause()                 { f.pauses++ }
func (f *fakeRenderer) Replay(token uint64)    { f.replays = append(f.replays, token) }
func (f *fakeRenderer) Seek(direction string, fraction float64) {
	f.seeks = append(f.seeks, fmt.Sprintf("%s:%.2f", direction, fraction))
}

func (f *fakeRenderer) last() Presentation {
	return f.presented[len(f.presented)-1]
}

func items(sources ...string) []models.ContentItem {
	out := make([]models.ContentItem, 0, len(sources))
	for _, src := range sources {
		out = append(out, models.NewContentItem(models.ContentEntry{Source: src}))
	}

	return out
}

func newSequencer(autoplay bool) (*Sequencer, *fakeRenderer, *eventloop.ManualScheduler) {
	sched := eventloop.NewManualScheduler(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	r := &fakeRenderer{}

	s := New(Config{
		Scheduler:     sched,
		Renderer:      r,
		ImageDuration: 10 * time.Second,
		Autoplay:      autoplay,
		Logger:        logger.NewTestLogger(),
	})

	return s, r, sched
}

func TestSequencer_AdvanceWrapsModuloLength(t *testing.T) {
	for _, length := range []int{1, 2, 3, 5} {
		for _, n := range []int{0, 1, 4, 7, 12} {
			t.Run(fmt.Sprintf("L=%d/N=%d", length, n), func(t *testing.T) {
				s, _, _ := newSequencer(false)

				sources := make([]string, length)
				for i := range sources {
					sources[i] = fmt.Sprintf("clip%d.mp4", i)
				}

				s.SetPlaylist(items(sources...))

				for i := 0; i < n; i++ {
					s.Advance()
				}

				idx, _, ok := s.Active()
				require.True(t, ok)
				assert.Equal(t, n%length, idx)
			})
		}
	}
}

func TestSequencer_AdvanceOnEmptyPlaylistIsNoop(t *testing.T) {
	s, r, _ := newSequencer(true)

	s.Advance()
	s.Previous()

	_, _, ok := s.Active()
	assert.False(t, ok)
	assert.Empty(t, r.presented)
}

func TestSequencer_SingleLoopingItemReplaysInPlace(t *testing.T) {
	s, r, _ := newSequencer(true)
	s.SetPlaylist(items("loop.mp4"))

	token := s.Token()
	s.Advance()

	assert.Len(t, r.presented, 1)
	assert.Equal(t, []uint64{token}, r.replays)
}

func TestSequencer_GotoSource(t *testing.T) {
	s, r, _ := newSequencer(false)
	s.SetPlaylist(items("a.mp4", "b.jpg", "c.mp3", "d.mov", "e.png"))

	require.True(t, s.GotoSource(3))

	idx, item, _ := s.Active()
	assert.Equal(t, 3, idx)
	assert.Equal(t, "d.mov", item.Source)
	assert.Equal(t, 3, r.last().Index)
}

func TestSequencer_InvalidReferencesAreIgnored(t *testing.T) {
	s, r, _ := newSequencer(false)
	s.SetPlaylist(items("a.mp4", "readme.txt", "c.mp4"))
	require.True(t, s.GotoSource(2))

	presentations := len(r.presented)
	token := s.Token()

	assert.False(t, s.GotoSource(-1))
	assert.False(t, s.GotoSource(3))
	assert.False(t, s.GotoSource(1))

	idx, _, _ := s.Active()
	assert.Equal(t, 2, idx)
	assert.Len(t, r.presented, presentations)
	assert.Equal(t, token, s.Token())
}

func TestSequencer_AdvanceSkipsUnsupportedItems(t *testing.T) {
	s, _, _ := newSequencer(false)
	s.SetPlaylist(items("a.mp4", "notes.txt", "c.mp4"))

	s.Advance()

	idx, _, _ := s.Active()
	assert.Equal(t, 2, idx)

	s.Previous()

	idx, _, _ = s.Active()
	assert.Equal(t, 0, idx)
}

func TestSequencer_SetPlaylistOnlyWhenDifferent(t *testing.T) {
	s, r, _ := newSequencer(false)

	assert.True(t, s.SetPlaylist(items("a.mp4", "b.mp4")))
	s.Advance()

	assert.False(t, s.SetPlaylist(items("a.mp4", "b.mp4")))

	idx, _, _ := s.Active()
	assert.Equal(t, 1, idx)

	assert.True(t, s.SetPlaylist(items("b.mp4", "a.mp4")))

	idx, _, _ = s.Active()
	assert.Equal(t, 0, idx)

	assert.True(t, s.SetPlaylist(nil))
	assert.Equal(t, 1, r.clears)
}

func TestSequencer_ImageTimerAdvancesWithAutoplay(t *testing.T) {
	s, _, sched := newSequencer(true)

	list := items("a.jpg", "b.jpg")
	list[0].Duration = 4 * time.Second
	s.SetPlaylist(list)

	sched.Advance(4*time.Second - time.Millisecond)

	idx, _, _ := s.Active()
	assert.Equal(t, 0, idx)

	sched.Advance(time.Millisecond)

	idx, _, _ = s.Active()
	assert.Equal(t, 1, idx)

	// Second image uses the configured image duration.
	sched.Advance(10 * time.Second)

	idx, _, _ = s.Active()
	assert.Equal(t, 0, idx)
}

func TestSequencer_ImageWithoutAutoplayRearmsInPlace(t *testing.T) {
	s, r, sched := newSequencer(false)
	s.SetPlaylist(items("a.jpg", "b.jpg"))

	sched.Advance(time.Minute)

	idx, _, _ := s.Active()
	assert.Equal(t, 0, idx)
	assert.Len(t, r.presented, 1)
	assert.Equal(t, 1, sched.Pending())
}

func TestSequencer_GotoCancelsPendingImageTimer(t *testing.T) {
	s, _, sched := newSequencer(true)
	s.SetPlaylist(items("a.jpg", "b.mp4", "c.jpg"))

	sched.Advance(5 * time.Second)
	require.True(t, s.GotoSource(1))
	assert.Zero(t, sched.Pending())

	sched.Advance(time.Minute)

	idx, _, _ := s.Active()
	assert.Equal(t, 1, idx)
}

func TestSequencer_StaleCompletionIgnored(t *testing.T) {
	s, _, _ := newSequencer(true)
	s.SetPlaylist(items("a.mp4", "b.mp4", "c.mp4"))

	stale := s.Token()
	require.True(t, s.GotoSource(2))

	s.MediaEnded(stale)

	idx, _, _ := s.Active()
	assert.Equal(t, 2, idx)

	s.MediaEnded(s.Token())

	idx, _, _ = s.Active()
	assert.Equal(t, 0, idx)
}

func TestSequencer_CompletionWithoutAutoplayReplays(t *testing.T) {
	s, r, _ := newSequencer(false)
	s.SetPlaylist(items("a.mp4", "b.mp4"))

	s.MediaEnded(s.Token())

	idx, _, _ := s.Active()
	assert.Equal(t, 0, idx)
	assert.Equal(t, []uint64{s.Token()}, r.replays)

	s.SetAttracting(true)
	s.MediaEnded(s.Token())

	idx, _, _ = s.Active()
	assert.Equal(t, 1, idx)
}

func TestSequencer_PrepareThenPlay(t *testing.T) {
	s, r, sched := newSequencer(true)
	s.SetPlaylist(items("poster.png"))

	require.True(t, s.Prepare())
	assert.True(t, r.last().Paused)
	assert.Zero(t, sched.Pending())

	s.Play()
	assert.Equal(t, 1, r.plays)
	assert.Equal(t, 1, sched.Pending())

	s.Pause()
	assert.Equal(t, 1, r.pauses)
	assert.Zero(t, sched.Pending())
}

func TestSequencer_SeekOnlyForTimedMedia(t *testing.T) {
	s, r, _ := newSequencer(false)
	s.SetPlaylist(items("a.jpg", "b.mp4"))

	s.Seek("forward", 0.1)
	require.True(t, s.GotoSource(1))
	s.Seek("back", 0.25)

	assert.Equal(t, []string{"back:0.25"}, r.seeks)
}
