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

// Package models pkg/models/exhibit.go
package models

import (
	"net/url"
	"path"
	"sort"
	"strings"
	"time"
)

// ComponentClass is the class every exhibit client reports in its ping.
const ComponentClass = "exhibitComponent"

// Permission names consulted by the command dispatcher and reported in pings.
const (
	PermissionRestart  = "restart"
	PermissionShutdown = "shutdown"
	PermissionRefresh  = "refresh"
	PermissionSleep    = "sleep"
)

// ComponentIdentity names this client to the control server.
type ComponentIdentity struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// IsZero reports whether no identity has been assigned yet.
func (c ComponentIdentity) IsZero() bool {
	return c.ID == "" && c.Type == ""
}

// PermissionMap maps an action name to whether it may run locally.
type PermissionMap map[string]bool

// Allowed reports whether the named action is permitted. Unknown actions are denied.
func (p PermissionMap) Allowed(name string) bool {
	return p[name]
}

// Wire renders the map the way the control server expects it: "true"/"false" strings.
func (p PermissionMap) Wire() map[string]string {
	out := make(map[string]string, len(p))

	for name, allowed := range p {
		if allowed {
			out[name] = "true"
		} else {
			out[name] = "false"
		}
	}

	return out
}

// Clone returns an independent copy.
func (p PermissionMap) Clone() PermissionMap {
	out := make(PermissionMap, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// ErrorAccumulator collects error flags that ride along with the next ping.
// Entries persist until overwritten or deleted by whoever owns the key.
type ErrorAccumulator map[string]interface{}

// Set records or overwrites an entry.
func (e ErrorAccumulator) Set(key string, value interface{}) {
	e[key] = value
}

// Delete removes an entry.
func (e ErrorAccumulator) Delete(key string) {
	delete(e, key)
}

// Snapshot returns a copy suitable for serialization, or nil when empty.
func (e ErrorAccumulator) Snapshot() map[string]interface{} {
	if len(e) == 0 {
		return nil
	}

	out := make(map[string]interface{}, len(e))
	for k, v := range e {
		out[k] = v
	}

	return out
}

// Keys returns the sorted entry keys.
func (e ErrorAccumulator) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// ContentKind tells whether a source is a local file or a remote URL.
type ContentKind string

const (
	ContentKindFile ContentKind = "file"
	ContentKindURL  ContentKind = "url"
)

// MediaType selects how the renderer presents an item and which completion signal ends it.
type MediaType string

const (
	MediaTypeVideo   MediaType = "video"
	MediaTypeImage   MediaType = "image"
	MediaTypeAudio   MediaType = "audio"
	MediaTypeUnknown MediaType = ""
)

var mediaTypesByExtension = map[string]MediaType{
	".mp4":  MediaTypeVideo,
	".m4v":  MediaTypeVideo,
	".mov":  MediaTypeVideo,
	".webm": MediaTypeVideo,
	".ogv":  MediaTypeVideo,
	".mpeg": MediaTypeVideo,
	".mpg":  MediaTypeVideo,
	".avi":  MediaTypeVideo,
	".mkv":  MediaTypeVideo,
	".jpg":  MediaTypeImage,
	".jpeg": MediaTypeImage,
	".png":  MediaTypeImage,
	".gif":  MediaTypeImage,
	".webp": MediaTypeImage,
	".bmp":  MediaTypeImage,
	".svg":  MediaTypeImage,
	".tif":  MediaTypeImage,
	".tiff": MediaTypeImage,
	".heic": MediaTypeImage,
	".mp3":  MediaTypeAudio,
	".wav":  MediaTypeAudio,
	".ogg":  MediaTypeAudio,
	".oga":  MediaTypeAudio,
	".aac":  MediaTypeAudio,
	".m4a":  MediaTypeAudio,
	".flac": MediaTypeAudio,
}

// MediaTypeOf guesses the media type from the source's extension.
func MediaTypeOf(source string) MediaType {
	p := source

	if u, err := url.Parse(source); err == nil && u.Scheme != "" {
		p = u.Path
	}

	return mediaTypesByExtension[strings.ToLower(path.Ext(p))]
}

// KindOf reports whether the source is a remote URL or a local file name.
func KindOf(source string) ContentKind {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ContentKindURL
	}

	return ContentKindFile
}

// Annotation is an overlay the renderer draws on top of an item.
type Annotation struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Position string `json:"position,omitempty"`
}

// ContentItem is one entry of a playlist.
type ContentItem struct {
	Source      string        `json:"source"`
	Kind        ContentKind   `json:"kind"`
	MediaType   MediaType     `json:"media_type"`
	Duration    time.Duration `json:"duration,omitempty"`
	Annotations []Annotation  `json:"annotations,omitempty"`
}

// Supported reports whether the renderer knows how to present the item.
func (c ContentItem) Supported() bool {
	return c.MediaType != MediaTypeUnknown
}

// Loops reports whether the item has its own playback end that can loop in place.
func (c ContentItem) Loops() bool {
	return c.MediaType == MediaTypeVideo || c.MediaType == MediaTypeAudio
}

// NewContentItem builds an item from a content entry.
func NewContentItem(entry ContentEntry) ContentItem {
	return ContentItem{
		Source:      entry.Source,
		Kind:        KindOf(entry.Source),
		MediaType:   MediaTypeOf(entry.Source),
		Duration:    time.Duration(entry.DurationSec * float64(time.Second)),
		Annotations: entry.Annotations,
	}
}

// SyncDirective asks several displays to start playback at the same instant.
type SyncDirective struct {
	TargetTimestamp int64    `json:"target_timestamp"` // epoch milliseconds
	PeerIDs         []string `json:"peer_ids,omitempty"`
}

// Target returns the directive's deadline as a time.Time.
func (s SyncDirective) Target() time.Time {
	return time.UnixMilli(s.TargetTimestamp)
}
