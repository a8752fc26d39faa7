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
	"time"

	"github.com/carverauto/exhibitd/pkg/models"
)

func seconds(n models.Number) time.Duration {
	return time.Duration(float64(n) * float64(time.Second))
}

// ApplyUpdate merges a partial update from the control server or the helper
// into the runtime state. Fields are applied independently; content comes
// before synchronization and commands so that both act on the new playlist.
// Must be called on the loop.
func (c *Client) ApplyUpdate(update *models.Update, invalid error) {
	if update == nil {
		return
	}

	if invalid != nil {
		c.logger.Warn().Err(invalid).Msg("Dropped invalid fields from update")
	}

	c.mergeIdentity(update)
	c.mergePermissions(update)
	c.mergeSettings(update)

	playlistChanged := c.mergeContent(update)

	c.mergeSynchronization(update, playlistChanged)

	if cmds, ok := update.Commands.Get(); ok && len(cmds) > 0 {
		c.dispatcher.Dispatch(c.context(), cmds)
	}
}

func (c *Client) mergeIdentity(u *models.Update) {
	if id, ok := u.ID.Get(); ok && id != c.state.Identity.ID {
		c.logger.Info().Str("id", id).Msg("Component id assigned")
		c.state.Identity.ID = id
	}

	if typ, ok := u.Type.Get(); ok {
		c.state.Identity.Type = typ
	}

	if endpoint, ok := u.ServerEndpoint(); ok && endpoint != c.state.ServerEndpoint {
		c.logger.Info().Str("server", endpoint).Msg("Control server endpoint changed")
		c.state.ServerEndpoint = endpoint
	}

	if addr, ok := u.HelperAddress.Get(); ok && addr != "" {
		c.bridge.SetEndpoint(normalizeEndpoint(addr))
	}

	if exhibit, ok := u.CurrentExhibit.Get(); ok {
		c.state.CurrentExhibit = exhibit
	}

	if anydesk, ok := u.AnydeskID.Get(); ok {
		c.state.AnydeskID = anydesk
	}
}

func (c *Client) mergePermissions(u *models.Update) {
	flags := []struct {
		name  string
		field models.Optional[models.Flag]
	}{
		{models.PermissionRestart, u.AllowRestart},
		{models.PermissionShutdown, u.AllowShutdown},
		{models.PermissionSleep, u.AllowSleep},
		{models.PermissionRefresh, u.AllowRefresh},
	}

	for _, f := range flags {
		if v, ok := f.field.Get(); ok {
			c.state.Permissions[f.name] = bool(v)
		}
	}
}

func (c *Client) mergeSettings(u *models.Update) {
	settings := map[string]interface{}{}

	if v, ok := u.AutoplayAudio.Get(); ok {
		c.state.AutoplayAudio = bool(v)
		settings["autoplay_audio"] = bool(v)
	}

	if v, ok := u.Dictionary.Get(); ok {
		c.state.Dictionary = v
		settings["dictionary"] = v
	}

	if v, ok := u.MissingContentWarnings.Get(); ok {
		c.state.MissingContentWarnings = v
	}

	if v, ok := u.HelperSoftwareUpdateAvailable.Get(); ok {
		c.state.HelperSoftwareUpdateAvailable = bool(v)
	}

	if v, ok := u.Autoplay.Get(); ok {
		c.seq.SetAutoplay(bool(v))
		settings["autoplay"] = bool(v)
	}

	if v, ok := u.ImageDuration.Get(); ok {
		c.seq.SetImageDuration(seconds(v))
		settings["image_duration"] = float64(v)
	}

	if v, ok := u.AttractorTimeout.Get(); ok {
		c.attract.SetTimeout(seconds(v))
	}

	if v, ok := u.PollInterval.Get(); ok {
		c.poller.SetInterval(seconds(v))
	}

	if len(settings) > 0 {
		c.renderer.Settings(settings)
	}
}

func (c *Client) mergeContent(u *models.Update) bool {
	entries, ok := u.Content.Get()
	if !ok {
		return false
	}

	items := make([]models.ContentItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, models.NewContentItem(entry))
	}

	return c.seq.SetPlaylist(items)
}

// mergeSynchronization preloads the active item whenever the peer group
// changes, or the playlist changes while a peer group is set.
func (c *Client) mergeSynchronization(u *models.Update, playlistChanged bool) {
	if peers, ok := u.SynchronizeWith.Get(); ok && c.state.peersChanged(peers) {
		c.state.SyncPeers = append([]string(nil), peers...)

		if len(peers) == 0 {
			c.syncer.Leave()
			return
		}

		c.syncer.Prepare(peers)

		return
	}

	if playlistChanged && len(c.state.SyncPeers) > 0 {
		c.syncer.Prepare(c.state.SyncPeers)
	}
}
