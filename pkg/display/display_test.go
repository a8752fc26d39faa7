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

package display

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/models"
	"github.com/carverauto/exhibitd/pkg/sequencer"
)

type testEnv struct {
	hub    *Hub
	server *Server
	http   *httptest.Server
	inputs chan string
	ended  chan uint64
	ready  chan struct{}
}

func newTestEnv(t *testing.T, origins []string, state StateFunc) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	loop := eventloop.New(nil, logger.NewTestLogger())

	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		_ = loop.Run(ctx)
	}()

	env := &testEnv{
		inputs: make(chan string, 4),
		ended:  make(chan uint64, 4),
		ready:  make(chan struct{}, 4),
	}

	env.hub = NewHub(loop, Callbacks{
		OnInput: func(source string) { env.inputs <- source },
		OnEnded: func(token uint64) { env.ended <- token },
		OnReady: func() { env.ready <- struct{}{} },
	}, logger.NewTestLogger())

	srv, err := NewServer(Config{
		AllowedOrigins: origins,
		Hub:            env.hub,
		Executor:       loop,
		State:          state,
		Logger:         logger.NewTestLogger(),
	})
	require.NoError(t, err)

	env.server = srv
	env.http = httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		env.http.Close()
		cancel()
		<-stopped
	})

	return env
}

func (e *testEnv) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func readSnapshot(t *testing.T, conn *websocket.Conn) []Message {
	t.Helper()

	return []Message{readMessage(t, conn), readMessage(t, conn), readMessage(t, conn)}
}

func videoPresentation(token uint64) sequencer.Presentation {
	return sequencer.Presentation{
		Token: token,
		Index: 1,
		Item:  models.NewContentItem(models.ContentEntry{Source: "intro.mp4"}),
	}
}

func TestHub_NewConnectionReceivesSnapshot(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	env.hub.Settings(map[string]interface{}{"autoplay_audio": true})
	env.hub.SetAttractor(true)
	env.hub.Present(videoPresentation(7))
	env.hub.Pause()

	conn := env.dial(t, nil)
	snapshot := readSnapshot(t, conn)

	assert.Equal(t, MessageSettings, snapshot[0].Type)
	assert.Equal(t, true, snapshot[0].Settings["autoplay_audio"])

	assert.Equal(t, MessageAttractor, snapshot[1].Type)
	require.NotNil(t, snapshot[1].Attracting)
	assert.True(t, *snapshot[1].Attracting)

	assert.Equal(t, MessageLoad, snapshot[2].Type)
	require.NotNil(t, snapshot[2].Presentation)
	assert.Equal(t, uint64(7), snapshot[2].Presentation.Token)
	assert.Equal(t, "intro.mp4", snapshot[2].Presentation.Item.Source)
	assert.True(t, snapshot[2].Presentation.Paused)
}

func TestHub_BroadcastsInOrder(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	conn := env.dial(t, nil)
	snapshot := readSnapshot(t, conn)
	assert.Nil(t, snapshot[2].Presentation)

	require.Eventually(t, func() bool { return env.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	env.hub.Present(videoPresentation(3))
	env.hub.Play()
	env.hub.Seek("forward", 0.25)
	env.hub.Replay(4)
	env.hub.Reload()
	env.hub.Clear()

	load := readMessage(t, conn)
	assert.Equal(t, MessageLoad, load.Type)
	require.NotNil(t, load.Presentation)
	assert.Equal(t, uint64(3), load.Presentation.Token)

	assert.Equal(t, MessagePlay, readMessage(t, conn).Type)

	seek := readMessage(t, conn)
	assert.Equal(t, MessageSeek, seek.Type)
	assert.Equal(t, "forward", seek.Direction)
	assert.InDelta(t, 0.25, seek.Fraction, 1e-9)

	replay := readMessage(t, conn)
	assert.Equal(t, MessageReplay, replay.Type)
	assert.Equal(t, uint64(4), replay.Token)

	assert.Equal(t, MessageReload, readMessage(t, conn).Type)

	cleared := readMessage(t, conn)
	assert.Equal(t, MessageLoad, cleared.Type)
	assert.Nil(t, cleared.Presentation)
}

func TestHub_DeliversRendererEvents(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	conn := env.dial(t, nil)
	readSnapshot(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(InboundMessage{Type: MessageReady}))
	require.NoError(t, conn.WriteJSON(InboundMessage{Type: MessageEnded, Token: 12}))
	require.NoError(t, conn.WriteJSON(InboundMessage{Type: MessageInput, Source: "touch"}))

	select {
	case <-env.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("ready not delivered")
	}

	select {
	case token := <-env.ended:
		assert.Equal(t, uint64(12), token)
	case <-time.After(2 * time.Second):
		t.Fatal("ended not delivered")
	}

	select {
	case source := <-env.inputs:
		assert.Equal(t, "touch", source)
	case <-time.After(2 * time.Second):
		t.Fatal("input not delivered")
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	conn := env.dial(t, nil)
	readSnapshot(t, conn)

	require.Eventually(t, func() bool { return env.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return env.hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_RejectsDisallowedOrigin(t *testing.T) {
	env := newTestEnv(t, []string{"http://localhost:3000"}, nil)

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := env.dial(t, http.Header{"Origin": []string{"http://localhost:3000"}})
	assert.Equal(t, MessageSettings, readMessage(t, conn).Type)
}

func TestServer_State(t *testing.T) {
	env := newTestEnv(t, nil, func() interface{} {
		return map[string]interface{}{"id": "lobby-1", "attracting": false}
	})

	resp, err := http.Get(env.http.URL + "/api/state")
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "lobby-1", doc["id"])
	assert.Equal(t, false, doc["attracting"])
}

func TestServer_Input(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp, err := http.Post(env.http.URL+"/api/input", "application/json", bytes.NewBufferString(`{"source":"button"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case source := <-env.inputs:
		assert.Equal(t, "button", source)
	case <-time.After(2 * time.Second):
		t.Fatal("input not delivered")
	}

	resp, err = http.Post(env.http.URL+"/api/input", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case source := <-env.inputs:
		assert.Equal(t, "api", source)
	case <-time.After(2 * time.Second):
		t.Fatal("input not delivered")
	}

	resp, err = http.Post(env.http.URL+"/api/input", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(env.http.URL + "/api/input")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_CORS(t *testing.T) {
	env := newTestEnv(t, []string{"http://localhost:3000"}, nil)

	req, err := http.NewRequest(http.MethodOptions, env.http.URL+"/api/input", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)

	req, err = http.NewRequest(http.MethodGet, env.http.URL+"/api/state", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNewServer_RequiresHubAndExecutor(t *testing.T) {
	_, err := NewServer(Config{})
	require.ErrorIs(t, err, errMissingHub)

	_, err = NewServer(Config{Hub: NewHub(nil, Callbacks{}, nil)})
	require.ErrorIs(t, err, errMissingExecutor)
}
