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

// Package display is the channel between the controller and the renderer
// page. The renderer connects over a websocket, receives presentation
// instructions and reports input and media completion back.
package display

import (
	"time"

	"github.com/carverauto/exhibitd/pkg/sequencer"
)

// Outbound message types.
const (
	MessageLoad      = "load"
	MessagePlay      = "play"
	MessagePause     = "pause"
	MessageSeek      = "seek"
	MessageReplay    = "replay"
	MessageAttractor = "attractor"
	MessageReload    = "reload"
	MessageSettings  = "settings"
)

// Inbound message types.
const (
	MessageInput = "input"
	MessageEnded = "ended"
	MessageReady = "ready"
)

// Message is sent to connected renderers. A load without a presentation
// clears the screen.
type Message struct {
	Type         string                  `json:"type"`
	Presentation *sequencer.Presentation `json:"presentation,omitempty"`
	Token        uint64                  `json:"token,omitempty"`
	Direction    string                  `json:"direction,omitempty"`
	Fraction     float64                 `json:"fraction,omitempty"`
	Attracting   *bool                   `json:"attracting,omitempty"`
	Settings     map[string]interface{}  `json:"settings,omitempty"`
	Timestamp    time.Time               `json:"timestamp"`
}

// InboundMessage is what renderers send back.
type InboundMessage struct {
	Type   string `json:"type"`
	Token  uint64 `json:"token,omitempty"`
	Source string `json:"source,omitempty"`
}

// InputRequest is the body accepted by POST /api/input.
type InputRequest struct {
	Source string `json:"source"`
}

// ErrorResponse is written for failed API requests.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}
