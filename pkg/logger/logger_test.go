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

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	config := &Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	}

	err := Init(context.Background(), config)
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
}

func TestInit_RejectsUnknownLevel(t *testing.T) {
	err := Init(context.Background(), &Config{Level: "chatty"})
	require.Error(t, err)
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestWithComponent(t *testing.T) {
	componentLogger := WithComponent("poller")

	assert.NotEqual(t, zerolog.Disabled, componentLogger.GetLevel())
}

func TestWrap_WithComponentTagsRecords(t *testing.T) {
	var buf bytes.Buffer

	l := Wrap(zerolog.New(&buf))
	cl := l.WithComponent("sequencer")
	cl.Info().Msg("advanced")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "sequencer", entry["component"])
	assert.Equal(t, "advanced", entry["message"])
}

func TestWrap_SetDebugTogglesLevel(t *testing.T) {
	var buf bytes.Buffer

	l := Wrap(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	l.SetDebug(true)
	l.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewTestLogger_Discards(t *testing.T) {
	l := NewTestLogger()

	assert.NotPanics(t, func() {
		l.Info().Str("k", "v").Msg("dropped")
		fl := l.WithFields(map[string]interface{}{"a": 1})
		fl.Warn().Msg("dropped")
	})
}

func TestNewOTELWriter_RequiresEndpoint(t *testing.T) {
	_, err := NewOTELWriter(context.Background(), OTelConfig{Enabled: true})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)

	_, err = NewOTELWriter(context.Background(), OTelConfig{})
	require.ErrorIs(t, err, ErrOTelLoggingDisabled)
}

func TestMultiWriter_WritesToAll(t *testing.T) {
	var a, b bytes.Buffer

	mw := NewMultiWriter(&a, &b)

	n, err := mw.Write([]byte("line"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "line", a.String())
	assert.Equal(t, "line", b.String())
}

func TestTruncateString(t *testing.T) {
	long := strings.Repeat("x", maxAttributeValueLength+10)

	got := truncateString(long, maxAttributeValueLength)

	assert.Len(t, got, maxAttributeValueLength)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", truncateString("short", maxAttributeValueLength))
}

func TestMapZerologLevelToOTEL(t *testing.T) {
	assert.Equal(t, mapZerologLevelToOTEL("warn"), mapZerologLevelToOTEL("WARNING"))
	assert.Equal(t, mapZerologLevelToOTEL("info"), mapZerologLevelToOTEL("bogus"))
}

func TestInitializeMetrics_DisabledWithoutOTel(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), MetricsConfig{})
	require.ErrorIs(t, err, ErrOTelMetricsDisabled)
}
