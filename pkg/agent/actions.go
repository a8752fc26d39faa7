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

package agent

import (
	"fmt"
	"strconv"
	"time"

	"github.com/carverauto/exhibitd/pkg/analytics"
	"github.com/carverauto/exhibitd/pkg/command"
	"github.com/carverauto/exhibitd/pkg/models"
	"github.com/carverauto/exhibitd/pkg/version"
)

// Helper actions.
const (
	actionRestart       = "restart"
	actionShutdown      = "shutdown"
	actionSleepDisplay  = "sleepDisplay"
	actionWakeDisplay   = "wakeDisplay"
	actionPauseAutorun  = "pauseAutorun"
	actionResumeAutorun = "resumeAutorun"
)

// Permissions implements command.PermissionSource.
func (c *Client) Permissions() models.PermissionMap {
	return c.state.Permissions
}

// RefreshPage reloads the renderer page and the active item.
func (c *Client) RefreshPage() {
	c.renderer.Reload()

	if i, _, ok := c.seq.Active(); ok {
		c.seq.GotoSource(i)
	}
}

// ReloadDefaults fetches the helper defaults again and merges them when they
// arrive.
func (c *Client) ReloadDefaults() {
	c.defaults.LoadAsync(c.context(), c.exec, func(u *models.Update) {
		c.ApplyUpdate(u, nil)
	})
}

func (c *Client) Restart()      { c.bridge.Send(c.context(), actionRestart, nil) }
func (c *Client) Shutdown()     { c.bridge.Send(c.context(), actionShutdown, nil) }
func (c *Client) SleepDisplay() { c.bridge.Send(c.context(), actionSleepDisplay, nil) }
func (c *Client) WakeDisplay()  { c.bridge.Send(c.context(), actionWakeDisplay, nil) }

func (c *Client) GotoClip(index int) { c.seq.GotoSource(index) }
func (c *Client) NextClip()          { c.seq.Advance() }
func (c *Client) PreviousClip()      { c.seq.Previous() }
func (c *Client) PlayVideo()         { c.seq.Play() }
func (c *Client) PauseVideo()        { c.seq.Pause() }

func (c *Client) SeekVideo(direction command.Direction, fraction float64) {
	c.seq.Seek(string(direction), fraction)
}

func (c *Client) BeginSynchronization(targetMillis int64) {
	c.syncer.Begin(models.SyncDirective{
		TargetTimestamp: targetMillis,
		PeerIDs:         c.state.SyncPeers,
	})
}

// ClearErrors empties the error accumulator.
func (c *Client) ClearErrors() {
	c.state.Errors = models.ErrorAccumulator{}
}

// helperResult records the last failure of a bridge under key and removes it
// once a request succeeds again.
func (c *Client) helperResult(key string) func(action string, err error) {
	return func(action string, err error) {
		if err != nil {
			c.state.Errors.Set(key, fmt.Sprintf("%s: %v", action, err))
			return
		}

		c.state.Errors.Delete(key)
	}
}

func (c *Client) onInput(source string) {
	c.logger.Debug().Str("source", source).Msg("Input")
	c.attract.Interaction()
}

func (c *Client) onEnded(token uint64) {
	c.seq.MediaEnded(token)
}

func (c *Client) onRendererReady() {
	c.state.RendererReady = true
	c.logger.Info().Msg("Renderer ready")
}

func (c *Client) enterAttractor() {
	c.attractedSince = c.sched.Now()

	c.seq.SetAttracting(true)

	// A display parked for a synchronized start keeps its preloaded frame
	// until the directive fires.
	if !c.syncer.Holding() {
		c.seq.Play()
	}

	c.renderer.SetAttractor(true)

	if c.autorun != nil {
		c.autorun.Send(c.context(), actionResumeAutorun, nil)
	}

	data := c.eventData()
	data.IdleSeconds = c.attract.Timeout().Seconds()

	if _, item, ok := c.seq.Active(); ok {
		data.ActiveSource = item.Source
	}

	c.events.AttractorStarted(data)
}

func (c *Client) exitAttractor() {
	c.seq.SetAttracting(false)
	c.renderer.SetAttractor(false)

	if c.autorun != nil {
		c.autorun.Send(c.context(), actionPauseAutorun, nil)
	}

	data := c.eventData()
	data.ActiveSeconds = c.sched.Now().Sub(c.attractedSince).Seconds()

	c.events.AttractorStopped(data)
}

func (c *Client) onSyncStarted(d models.SyncDirective, late time.Duration) {
	data := c.eventData()
	data.TargetTimestamp = d.TargetTimestamp
	data.Peers = d.PeerIDs
	data.LatenessMillis = late.Milliseconds()

	c.events.SyncStarted(data)
}

func (c *Client) onCommandExecuted(cmd command.Command) {
	data := c.eventData()
	data.Command = cmd.Name()

	c.events.CommandExecuted(data)
}

func (c *Client) eventData() analytics.EventData {
	return analytics.EventData{
		ComponentID:   c.state.Identity.ID,
		ComponentType: c.state.Identity.Type,
		Timestamp:     c.sched.Now(),
	}
}

// buildPing assembles the request for the current tick. Nothing is sent
// while the control server endpoint is unknown.
func (c *Client) buildPing() (string, *models.PingRequest, bool) {
	if c.state.ServerEndpoint == "" {
		return "", nil, false
	}

	return c.state.ServerEndpoint, &models.PingRequest{
		Class:              models.ComponentClass,
		ID:                 c.state.Identity.ID,
		Type:               c.state.Identity.Type,
		CurrentInteraction: strconv.FormatBool(!c.attract.Attracting()),
		AllowedActions:     c.state.Permissions.Wire(),
		Error:              c.state.Errors.Snapshot(),
		Version:            version.GetVersion(),
	}, true
}

func (c *Client) stateView() StateView {
	view := StateView{
		ID:                            c.state.Identity.ID,
		Type:                          c.state.Identity.Type,
		ServerEndpoint:                c.state.ServerEndpoint,
		HelperEndpoint:                c.bridge.Endpoint(),
		Permissions:                   c.state.Permissions.Clone(),
		Errors:                        c.state.Errors.Snapshot(),
		Attracting:                    c.attract.Attracting(),
		ActivityDeadline:              c.attract.Deadline(),
		AttractorTimeout:              c.attract.Timeout().String(),
		Playlist:                      c.seq.Playlist(),
		ActiveIndex:                   -1,
		Autoplay:                      c.seq.Autoplay(),
		SyncPeers:                     append([]string(nil), c.state.SyncPeers...),
		PollInterval:                  c.poller.Interval().String(),
		CurrentExhibit:                c.state.CurrentExhibit,
		AnydeskID:                     c.state.AnydeskID,
		MissingContentWarnings:        c.state.MissingContentWarnings,
		HelperSoftwareUpdateAvailable: c.state.HelperSoftwareUpdateAvailable,
		DefaultsLoaded:                c.state.DefaultsLoaded,
		RendererReady:                 c.state.RendererReady,
		Version:                       version.GetVersion(),
	}

	if i, _, ok := c.seq.Active(); ok {
		view.ActiveIndex = i
	}

	if d, ok := c.syncer.Pending(); ok {
		view.PendingSync = &d
	}

	return view
}
