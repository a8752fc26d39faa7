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
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/exhibitd/pkg/analytics"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
)

var (
	errHelperAddressRequired = errors.New("helper_address is required")
	errNegativeDuration      = errors.New("duration must not be negative")
)

// DisplayConfig configures the renderer channel.
type DisplayConfig struct {
	ListenAddr     string   `json:"listen_addr"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// Config is the agent's local configuration. Identity, the control server
// address and permissions normally arrive from the helper's defaults.
type Config struct {
	HelperAddress      string            `json:"helper_address"`
	ServerAddress      string            `json:"server_address,omitempty"`
	DeviceClass        string            `json:"device_class"`
	PollInterval       models.Duration   `json:"poll_interval"`
	RequestTimeout     models.Duration   `json:"request_timeout"`
	AttractorTimeout   models.Duration   `json:"attractor_timeout"`
	ImageDuration      models.Duration   `json:"image_duration"`
	Autoplay           *bool             `json:"autoplay,omitempty"`
	DefaultsTimeout    models.Duration   `json:"defaults_timeout"`
	DefaultsRetryDelay models.Duration   `json:"defaults_retry_delay"`
	HelperTimeout      models.Duration   `json:"helper_timeout"`
	AutorunAddress     string            `json:"autorun_address,omitempty"`
	Display            DisplayConfig     `json:"display"`
	Analytics          *analytics.Config `json:"analytics,omitempty"`
	Logging            *logger.Config    `json:"logging,omitempty"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HelperAddress) == "" {
		return errHelperAddressRequired
	}

	durations := []struct {
		name  string
		value models.Duration
	}{
		{"poll_interval", c.PollInterval},
		{"request_timeout", c.RequestTimeout},
		{"attractor_timeout", c.AttractorTimeout},
		{"image_duration", c.ImageDuration},
		{"defaults_timeout", c.DefaultsTimeout},
		{"defaults_retry_delay", c.DefaultsRetryDelay},
		{"helper_timeout", c.HelperTimeout},
	}

	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s: %w", d.name, errNegativeDuration)
		}
	}

	if c.Analytics != nil {
		if err := c.Analytics.Validate(); err != nil {
			return fmt.Errorf("invalid analytics configuration: %w", err)
		}
	}

	return nil
}

func (c *Config) autoplay() bool {
	if c.Autoplay == nil {
		return true
	}

	return *c.Autoplay
}

// normalizeEndpoint turns "host:port" into a base URL.
func normalizeEndpoint(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if addr == "" {
		return ""
	}

	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	return addr
}
