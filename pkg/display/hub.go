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
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
	"github.com/carverauto/exhibitd/pkg/sequencer"
)

const (
	sendBufferSize = 32
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Callbacks receive renderer events. They run on the executor.
type Callbacks struct {
	OnInput func(source string)
	OnEnded func(token uint64)
	OnReady func()
}

// Hub fans presentation instructions out to every connected renderer and
// keeps the latest state so late joiners can catch up. Renderer methods are
// called from the loop and never block on the network.
type Hub struct {
	exec   eventloop.Executor
	cb     Callbacks
	logger logger.Logger

	mu        sync.Mutex
	clients   map[*client]struct{}
	load      Message
	attractor Message
	settings  Message
}

var _ sequencer.Renderer = (*Hub)(nil)

func NewHub(exec eventloop.Executor, cb Callbacks, log logger.Logger) *Hub {
	if log == nil {
		log = logger.NewTestLogger()
	}

	attracting := false

	return &Hub{
		exec:      exec,
		cb:        cb,
		logger:    log,
		clients:   make(map[*client]struct{}),
		load:      Message{Type: MessageLoad},
		attractor: Message{Type: MessageAttractor, Attracting: &attracting},
		settings:  Message{Type: MessageSettings, Settings: map[string]interface{}{}},
	}
}

func (h *Hub) Present(p sequencer.Presentation) {
	pres := p

	h.mu.Lock()
	h.load = Message{Type: MessageLoad, Presentation: &pres}
	h.mu.Unlock()

	h.broadcast(Message{Type: MessageLoad, Presentation: &p})
}

func (h *Hub) Clear() {
	h.mu.Lock()
	h.load = Message{Type: MessageLoad}
	h.mu.Unlock()

	h.broadcast(Message{Type: MessageLoad})
}

func (h *Hub) Play() {
	h.setPaused(false)
	h.broadcast(Message{Type: MessagePlay})
}

func (h *Hub) Pause() {
	h.setPaused(true)
	h.broadcast(Message{Type: MessagePause})
}

func (h *Hub) Seek(direction string, fraction float64) {
	h.broadcast(Message{Type: MessageSeek, Direction: direction, Fraction: fraction})
}

func (h *Hub) Replay(token uint64) {
	h.mu.Lock()
	if h.load.Presentation != nil {
		pres := *h.load.Presentation
		pres.Token = token
		pres.Paused = false
		h.load.Presentation = &pres
	}
	h.mu.Unlock()

	h.broadcast(Message{Type: MessageReplay, Token: token})
}

// SetAttractor tells renderers whether attractor mode is on.
func (h *Hub) SetAttractor(on bool) {
	h.mu.Lock()
	h.attractor = Message{Type: MessageAttractor, Attracting: &on}
	h.mu.Unlock()

	h.broadcast(Message{Type: MessageAttractor, Attracting: &on})
}

// Reload asks renderers to reload the page.
func (h *Hub) Reload() {
	h.broadcast(Message{Type: MessageReload})
}

// Settings merges values into the settings sent to renderers, for instance
// the dictionary or autoplay_audio.
func (h *Hub) Settings(values map[string]interface{}) {
	h.mu.Lock()
	merged := maps.Clone(h.settings.Settings)
	maps.Copy(merged, values)
	h.settings = Message{Type: MessageSettings, Settings: merged}
	h.mu.Unlock()

	h.broadcast(Message{Type: MessageSettings, Settings: maps.Clone(merged)})
}

// Clients reports the number of connected renderers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

func (h *Hub) setPaused(paused bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.load.Presentation == nil {
		return
	}

	pres := *h.load.Presentation
	pres.Paused = paused
	h.load.Presentation = &pres
}

func (h *Hub) broadcast(msg Message) {
	msg.Timestamp = time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Str("client_addr", c.remote).Msg("Renderer is not keeping up, dropping connection")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// register queues the snapshot before the client becomes visible to
// broadcasts so ordering is preserved.
func (h *Hub) register(c *client) {
	now := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	settings := h.settings
	settings.Settings = maps.Clone(h.settings.Settings)

	for _, msg := range []Message{settings, h.attractor, h.load} {
		msg.Timestamp = now
		c.send <- msg
	}

	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) deliver(msg InboundMessage) {
	switch msg.Type {
	case MessageInput:
		if h.cb.OnInput != nil {
			source := msg.Source
			h.exec.Post(func() { h.cb.OnInput(source) })
		}
	case MessageEnded:
		if h.cb.OnEnded != nil {
			token := msg.Token
			h.exec.Post(func() { h.cb.OnEnded(token) })
		}
	case MessageReady:
		if h.cb.OnReady != nil {
			h.exec.Post(h.cb.OnReady)
		}
	default:
		h.logger.Debug().Str("type", msg.Type).Msg("Ignoring unknown renderer message")
	}
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	remote string
}

func newClient(h *Hub, conn *websocket.Conn) *client {
	return &client{
		hub:    h,
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		remote: conn.RemoteAddr().String(),
	}
}

// writePump is the only writer on the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.logger.Debug().Err(err).Str("client_addr", c.remote).Msg("Failed to write renderer message")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	start := time.Now()

	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()

		c.hub.logger.Info().
			Str("client_addr", c.remote).
			Dur("duration", time.Since(start)).
			Msg("Renderer disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Warn().Err(err).Str("client_addr", c.remote).Msg("Unexpected renderer close")
			}

			return
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Warn().Err(err).Str("client_addr", c.remote).Msg("Ignoring undecodable renderer message")
			continue
		}

		c.hub.deliver(msg)
	}
}
