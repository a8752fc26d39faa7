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

package analytics

import (
	"errors"
	"time"

	"github.com/carverauto/exhibitd/pkg/models"
)

const (
	DefaultStream         = "EXHIBIT_EVENTS"
	DefaultSubject        = "exhibit.events"
	DefaultSource         = "exhibitd/agent"
	DefaultPublishTimeout = 5 * time.Second
)

var (
	errURLRequired     = errors.New("analytics nats_url is required when enabled")
	errInvalidSubject  = errors.New("analytics subject must not contain wildcards")
	errMTLSIncomplete  = errors.New("analytics tls requires cert_file, key_file and ca_file")
	errCAParsingFailed = errors.New("failed to parse CA certificate")
)

// Config controls publishing of exhibit analytics events to JetStream.
type Config struct {
	Enabled        bool            `json:"enabled"`
	URL            string          `json:"nats_url"`
	Domain         string          `json:"domain,omitempty"`
	Stream         string          `json:"stream"`
	Subject        string          `json:"subject"`
	Source         string          `json:"source"`
	PublishTimeout models.Duration `json:"publish_timeout"`
	TLS            *TLSConfig      `json:"tls,omitempty"`
}

type TLSConfig struct {
	CertFile   string `json:"cert_file"`
	KeyFile    string `json:"key_file"`
	CAFile     string `json:"ca_file"`
	ServerName string `json:"server_name,omitempty"`
}

// Validate checks an enabled configuration and fills in defaults.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.URL == "" {
		return errURLRequired
	}

	if c.Stream == "" {
		c.Stream = DefaultStream
	}

	if c.Subject == "" {
		c.Subject = DefaultSubject
	}

	for _, token := range splitSubject(c.Subject) {
		if token == "*" || token == ">" {
			return errInvalidSubject
		}
	}

	if c.Source == "" {
		c.Source = DefaultSource
	}

	if c.PublishTimeout <= 0 {
		c.PublishTimeout = models.Duration(DefaultPublishTimeout)
	}

	if c.TLS != nil && (c.TLS.CertFile == "" || c.TLS.KeyFile == "" || c.TLS.CAFile == "") {
		return errMTLSIncomplete
	}

	return nil
}
