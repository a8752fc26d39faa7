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

package synchronizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/models"
)

type fakePlayer struct {
	prepares int
	plays    int
	playedAt []time.Time
	sched    *eventloop.ManualScheduler
}

func (f *fakePlayer) Prepare() bool {
	f.prepares++
	return true
}

func (f *fakePlayer) Play() {
	f.plays++
	f.playedAt = append(f.playedAt, f.sched.Now())
}

func setup() (*Synchronizer, *fakePlayer, *eventloop.ManualScheduler, *[]models.SyncDirective) {
	sched := eventloop.NewManualScheduler(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	player := &fakePlayer{sched: sched}
	started := &[]models.SyncDirective{}

	s := New(Config{
		Scheduler: sched,
		Player:    player,
		OnStart: func(d models.SyncDirective, _ time.Duration) {
			*started = append(*started, d)
		},
	})

	return s, player, sched, started
}

func directiveIn(sched *eventloop.ManualScheduler, d time.Duration) models.SyncDirective {
	return models.SyncDirective{TargetTimestamp: sched.Now().Add(d).UnixMilli()}
}

func TestSynchronizer_FiresAtTargetNotBefore(t *testing.T) {
	s, player, sched, started := setup()

	target := sched.Now().Add(500 * time.Millisecond)

	s.Prepare([]string{"wall-left", "wall-right"})
	s.Begin(directiveIn(sched, 500*time.Millisecond))

	sched.Advance(499 * time.Millisecond)
	assert.Zero(t, player.plays)

	_, pending := s.Pending()
	assert.True(t, pending)

	sched.Advance(time.Millisecond)
	require.Equal(t, 1, player.plays)
	assert.Equal(t, target, player.playedAt[0])

	// Preloaded during Prepare, so no second load at fire time.
	assert.Equal(t, 1, player.prepares)

	require.Len(t, *started, 1)
	assert.Equal(t, []string{"wall-left", "wall-right"}, (*started)[0].PeerIDs)

	_, pending = s.Pending()
	assert.False(t, pending)
}

func TestSynchronizer_LateDirectiveFiresImmediately(t *testing.T) {
	s, player, sched, _ := setup()

	s.Begin(directiveIn(sched, -2*time.Second))
	assert.Zero(t, player.plays)

	sched.Advance(0)
	assert.Equal(t, 1, player.plays)
	assert.Equal(t, 1, player.prepares)
}

func TestSynchronizer_NewDirectiveReplacesPending(t *testing.T) {
	s, player, sched, started := setup()

	first := directiveIn(sched, time.Second)
	second := directiveIn(sched, 3*time.Second)

	s.Begin(first)
	s.Begin(second)

	assert.Equal(t, 1, sched.Pending())

	sched.Advance(2 * time.Second)
	assert.Zero(t, player.plays)

	sched.Advance(time.Second)
	assert.Equal(t, 1, player.plays)
	require.Len(t, *started, 1)
	assert.Equal(t, second.TargetTimestamp, (*started)[0].TargetTimestamp)
}

func TestSynchronizer_Cancel(t *testing.T) {
	s, player, sched, _ := setup()

	s.Begin(directiveIn(sched, time.Second))
	s.Cancel()

	sched.Advance(time.Minute)
	assert.Zero(t, player.plays)
}

func TestSynchronizer_HoldsFromPrepareUntilFire(t *testing.T) {
	s, player, sched, started := setup()

	assert.False(t, s.Holding())

	s.Prepare([]string{"left", "right"})
	assert.True(t, s.Holding())

	s.Begin(directiveIn(sched, 500*time.Millisecond))
	assert.True(t, s.Holding())

	sched.Advance(500 * time.Millisecond)

	assert.False(t, s.Holding())
	assert.Equal(t, 1, player.plays)
	require.Len(t, *started, 1)
	assert.Equal(t, []string{"left", "right"}, (*started)[0].PeerIDs)
}

func TestSynchronizer_LeaveReleasesHold(t *testing.T) {
	s, player, sched, _ := setup()

	s.Prepare([]string{"left"})
	s.Begin(directiveIn(sched, time.Second))

	s.Leave()
	assert.False(t, s.Holding())

	sched.Advance(time.Minute)
	assert.Zero(t, player.plays)
}
