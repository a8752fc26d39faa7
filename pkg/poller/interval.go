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

package poller

import "time"

const (
	DeviceClassMediaPlayer     = "media_player"
	DeviceClassMediaBrowser    = "media_browser"
	DeviceClassKiosk           = "kiosk"
	DeviceClassWordCloud       = "word_cloud"
	DeviceClassInfoStation     = "infostation"
	DeviceClassTimelapseViewer = "timelapse_viewer"

	defaultInterval = 5 * time.Second
)

//nolint:gochecknoglobals // lookup table
var intervalsByClass = map[string]time.Duration{
	DeviceClassMediaPlayer:     2 * time.Second,
	DeviceClassMediaBrowser:    5 * time.Second,
	DeviceClassKiosk:           5 * time.Second,
	DeviceClassWordCloud:       5 * time.Second,
	DeviceClassInfoStation:     5 * time.Second,
	DeviceClassTimelapseViewer: 5 * time.Second,
}

// IntervalFor returns the poll interval for a device class. An override
// greater than zero wins.
func IntervalFor(deviceClass string, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}

	if d, ok := intervalsByClass[deviceClass]; ok {
		return d
	}

	return defaultInterval
}
