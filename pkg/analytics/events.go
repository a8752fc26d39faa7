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

// Package analytics publishes exhibit usage events as CloudEvents on NATS
// JetStream.
package analytics

import (
	"time"
)

// Event types, relative to the configured subject.
const (
	EventAttractorStarted = "attractor.started"
	EventAttractorStopped = "attractor.stopped"
	EventSyncStarted      = "sync.started"
	EventCommandExecuted  = "command.executed"
)

const cloudEventTypePrefix = "org.exhibitd."

type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// EventData is the payload of every exhibit event. Fields not relevant to
// an event type are omitted.
type EventData struct {
	ComponentID   string    `json:"component_id"`
	ComponentType string    `json:"component_type,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	Command string `json:"command,omitempty"`

	// Attractor events.
	ActiveSource  string  `json:"active_source,omitempty"`
	IdleSeconds   float64 `json:"idle_seconds,omitempty"`
	ActiveSeconds float64 `json:"active_seconds,omitempty"`

	// Sync events.
	TargetTimestamp int64    `json:"target_timestamp,omitempty"`
	Peers           []string `json:"peers,omitempty"`
	LatenessMillis  int64    `json:"lateness_ms,omitempty"`
}
