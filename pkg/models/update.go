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

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var (
	errInvalidFlag         = errors.New("invalid boolean flag")
	errInvalidNumber       = errors.New("invalid number")
	errInvalidStringList   = errors.New("invalid string list")
	errInvalidContentEntry = errors.New("invalid content entry")
	errInvalidServerPort   = errors.New("server_port out of range")
	errNonPositiveSeconds  = errors.New("value must be positive")
	errEmptyServerAddress  = errors.New("server_ip_address is empty")
)

// Optional holds a field that may be absent, explicitly null, or set.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns an Optional carrying v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true

	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}

	return json.Unmarshal(b, &o.Value)
}

// Present reports whether the field was sent with a non-null value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Present()
}

// clear marks the field absent, used when validation rejects it.
func (o *Optional[T]) clear() {
	var zero T
	o.Value = zero
	o.Set = false
	o.Null = false
}

// Flag is a boolean the control server may send as true/false or "true"/"false".
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case bool:
		*f = Flag(value)
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			*f = true
		case "false", "0", "no", "off", "":
			*f = false
		default:
			return fmt.Errorf("%w: %q", errInvalidFlag, value)
		}
	case float64:
		*f = value != 0
	default:
		return errInvalidFlag
	}

	return nil
}

// Number is a float the control server may send as a number or a numeric string.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*n = Number(value)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", errInvalidNumber, value)
		}

		*n = Number(f)
	default:
		return errInvalidNumber
	}

	return nil
}

// StringList accepts "a,b,c" or ["a","b","c"].
type StringList []string

func (s *StringList) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	out := StringList{}

	switch value := v.(type) {
	case string:
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []interface{}:
		for _, item := range value {
			str, ok := item.(string)
			if !ok {
				return errInvalidStringList
			}

			if str = strings.TrimSpace(str); str != "" {
				out = append(out, str)
			}
		}
	default:
		return errInvalidStringList
	}

	*s = out

	return nil
}

// ContentEntry is one element of the "content" list: a bare source string or
// an object carrying a duration override and annotations.
type ContentEntry struct {
	Source      string       `json:"source"`
	DurationSec float64      `json:"duration,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

func (c *ContentEntry) UnmarshalJSON(b []byte) error {
	var source string
	if err := json.Unmarshal(b, &source); err == nil {
		*c = ContentEntry{Source: source}
		return nil
	}

	type plain ContentEntry

	var entry plain
	if err := json.Unmarshal(b, &entry); err != nil {
		return fmt.Errorf("%w: %w", errInvalidContentEntry, err)
	}

	if entry.Source == "" {
		return errInvalidContentEntry
	}

	*c = ContentEntry(entry)

	return nil
}

// Update is the partial desired-state document returned by a ping (and by the
// helper's getDefaults). Every field is optional and merged independently.
type Update struct {
	ID                            Optional[string]                 `json:"id"`
	Type                          Optional[string]                 `json:"type"`
	ServerIPAddress               Optional[string]                 `json:"server_ip_address"`
	ServerPort                    Optional[Number]                 `json:"server_port"`
	HelperAddress                 Optional[string]                 `json:"helperAddress"`
	Content                       Optional[[]ContentEntry]         `json:"content"`
	CurrentExhibit                Optional[string]                 `json:"current_exhibit"`
	SynchronizeWith               Optional[StringList]             `json:"synchronize_with"`
	Commands                      Optional[[]string]               `json:"commands"`
	AllowRestart                  Optional[Flag]                   `json:"allow_restart"`
	AllowShutdown                 Optional[Flag]                   `json:"allow_shutdown"`
	AllowSleep                    Optional[Flag]                   `json:"allow_sleep"`
	AllowRefresh                  Optional[Flag]                   `json:"allow_refresh"`
	AutoplayAudio                 Optional[Flag]                   `json:"autoplay_audio"`
	Autoplay                      Optional[Flag]                   `json:"autoplay"`
	ImageDuration                 Optional[Number]                 `json:"image_duration"`
	AttractorTimeout              Optional[Number]                 `json:"attractor_timeout"`
	PollInterval                  Optional[Number]                 `json:"poll_interval"`
	AnydeskID                     Optional[string]                 `json:"anydesk_id"`
	Dictionary                    Optional[map[string]interface{}] `json:"dictionary"`
	MissingContentWarnings        Optional[json.RawMessage]        `json:"missingContentWarnings"`
	HelperSoftwareUpdateAvailable Optional[Flag]                   `json:"helperSoftwareUpdateAvailable"`
}

// optionalField is implemented by every *Optional[T].
type optionalField interface {
	json.Unmarshaler
	clear()
}

type updateField struct {
	key   string
	field optionalField
}

// fields lists the wire keys in document order.
func (u *Update) fields() []updateField {
	return []updateField{
		{"id", &u.ID},
		{"type", &u.Type},
		{"server_ip_address", &u.ServerIPAddress},
		{"server_port", &u.ServerPort},
		{"helperAddress", &u.HelperAddress},
		{"content", &u.Content},
		{"current_exhibit", &u.CurrentExhibit},
		{"synchronize_with", &u.SynchronizeWith},
		{"commands", &u.Commands},
		{"allow_restart", &u.AllowRestart},
		{"allow_shutdown", &u.AllowShutdown},
		{"allow_sleep", &u.AllowSleep},
		{"allow_refresh", &u.AllowRefresh},
		{"autoplay_audio", &u.AutoplayAudio},
		{"autoplay", &u.Autoplay},
		{"image_duration", &u.ImageDuration},
		{"attractor_timeout", &u.AttractorTimeout},
		{"poll_interval", &u.PollInterval},
		{"anydesk_id", &u.AnydeskID},
		{"dictionary", &u.Dictionary},
		{"missingContentWarnings", &u.MissingContentWarnings},
		{"helperSoftwareUpdateAvailable", &u.HelperSoftwareUpdateAvailable},
	}
}

// ParseUpdate decodes a response body field by field. A field that cannot be
// decoded or fails validation is dropped and reported through the returned
// error; the remaining fields stay usable. The update is nil only when the
// body is not a JSON object.
func ParseUpdate(data []byte) (*Update, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode update: %w", err)
	}

	var (
		u    Update
		errs []error
	)

	for _, f := range u.fields() {
		value, ok := raw[f.key]
		if !ok {
			continue
		}

		if err := f.field.UnmarshalJSON(value); err != nil {
			f.field.clear()
			errs = append(errs, fmt.Errorf("%s: %w", f.key, err))
		}
	}

	if err := u.Validate(); err != nil {
		errs = append(errs, err)
	}

	return &u, errors.Join(errs...)
}

// Validate clears fields holding values that cannot be applied and returns
// every problem found.
func (u *Update) Validate() error {
	var errs []error

	if port, ok := u.ServerPort.Get(); ok && (port < 0 || port > 65535) {
		errs = append(errs, fmt.Errorf("%w: %v", errInvalidServerPort, port))
		u.ServerPort.clear()
	}

	if addr, ok := u.ServerIPAddress.Get(); ok && strings.TrimSpace(addr) == "" {
		errs = append(errs, errEmptyServerAddress)
		u.ServerIPAddress.clear()
	}

	positive := []struct {
		name  string
		field *Optional[Number]
	}{
		{"image_duration", &u.ImageDuration},
		{"attractor_timeout", &u.AttractorTimeout},
		{"poll_interval", &u.PollInterval},
	}

	for _, p := range positive {
		if v, ok := p.field.Get(); ok && v <= 0 {
			errs = append(errs, fmt.Errorf("%s: %w", p.name, errNonPositiveSeconds))
			p.field.clear()
		}
	}

	return errors.Join(errs...)
}

// ServerEndpoint builds the control server base URL from the address fields.
// ok is false when the update carries no address.
func (u *Update) ServerEndpoint() (endpoint string, ok bool) {
	addr, ok := u.ServerIPAddress.Get()
	if !ok {
		return "", false
	}

	addr = strings.TrimRight(strings.TrimSpace(addr), "/")

	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	if port, hasPort := u.ServerPort.Get(); hasPort && port > 0 {
		host := strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "https://")
		if _, _, err := net.SplitHostPort(host); err != nil {
			addr = fmt.Sprintf("%s:%d", addr, int(port))
		}
	}

	return addr, true
}

// PingRequest is what the poll loop posts to the control server every tick.
type PingRequest struct {
	Class              string                 `json:"class"`
	ID                 string                 `json:"id"`
	Type               string                 `json:"type"`
	CurrentInteraction string                 `json:"currentInteraction"`
	AllowedActions     map[string]string      `json:"allowed_actions"`
	Error              map[string]interface{} `json:"error,omitempty"`
	Version            string                 `json:"version,omitempty"`
}

// HelperRequest is a one-way instruction for the local companion process.
type HelperRequest struct {
	Action string
	Params map[string]interface{}
}

// MarshalJSON flattens params next to the action name.
func (h HelperRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{}, len(h.Params)+1)
	for k, v := range h.Params {
		body[k] = v
	}

	body["action"] = h.Action

	return json.Marshal(body)
}
