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
	"encoding/json"
	"slices"
	"time"

	"github.com/carverauto/exhibitd/pkg/models"
)

// Error keys owned by local producers.
const (
	errorKeyHelper  = "helper"
	errorKeyAutorun = "autorun"
)

// State is the runtime record of one display. It is owned by the event loop.
type State struct {
	Identity       models.ComponentIdentity
	ServerEndpoint string
	Permissions    models.PermissionMap
	Errors         models.ErrorAccumulator

	SyncPeers                     []string
	CurrentExhibit                string
	AnydeskID                     string
	AutoplayAudio                 bool
	Dictionary                    map[string]interface{}
	MissingContentWarnings        json.RawMessage
	HelperSoftwareUpdateAvailable bool

	DefaultsLoaded bool
	RendererReady  bool
}

func newState() *State {
	return &State{
		Permissions: models.PermissionMap{},
		Errors:      models.ErrorAccumulator{},
	}
}

// StateView is the diagnostic document served at /api/state.
type StateView struct {
	ID                            string                 `json:"id"`
	Type                          string                 `json:"type"`
	ServerEndpoint                string                 `json:"server_endpoint"`
	HelperEndpoint                string                 `json:"helper_endpoint"`
	Permissions                   map[string]bool        `json:"permissions"`
	Errors                        map[string]interface{} `json:"errors,omitempty"`
	Attracting                    bool                   `json:"attracting"`
	ActivityDeadline              time.Time              `json:"activity_deadline"`
	AttractorTimeout              string                 `json:"attractor_timeout"`
	Playlist                      []models.ContentItem   `json:"playlist"`
	ActiveIndex                   int                    `json:"active_index"`
	Autoplay                      bool                   `json:"autoplay"`
	SyncPeers                     []string               `json:"sync_peers,omitempty"`
	PendingSync                   *models.SyncDirective  `json:"pending_sync,omitempty"`
	PollInterval                  string                 `json:"poll_interval"`
	CurrentExhibit                string                 `json:"current_exhibit,omitempty"`
	AnydeskID                     string                 `json:"anydesk_id,omitempty"`
	MissingContentWarnings        json.RawMessage        `json:"missing_content_warnings,omitempty"`
	HelperSoftwareUpdateAvailable bool                   `json:"helper_software_update_available"`
	DefaultsLoaded                bool                   `json:"defaults_loaded"`
	RendererReady                 bool                   `json:"renderer_ready"`
	Version                       string                 `json:"version"`
}

func (s *State) peersChanged(peers []string) bool {
	return !slices.Equal(s.SyncPeers, peers)
}
