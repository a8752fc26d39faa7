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
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/carverauto/exhibitd/pkg/eventloop"
	"github.com/carverauto/exhibitd/pkg/logger"
)

const (
	DefaultListenAddr = "127.0.0.1:8765"

	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	stateTimeout        = 2 * time.Second
	maxInputBodySize    = 4096
)

// StateFunc builds the diagnostic state document. It runs on the executor.
type StateFunc func() interface{}

type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	Hub            *Hub
	Executor       eventloop.Executor
	State          StateFunc
	Logger         logger.Logger
}

// Server exposes the renderer websocket and a small HTTP API.
type Server struct {
	addr           string
	allowedOrigins []string
	hub            *Hub
	exec           eventloop.Executor
	state          StateFunc
	logger         logger.Logger
	router         *mux.Router
	upgrader       websocket.Upgrader
	srv            *http.Server
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Hub == nil {
		return nil, errMissingHub
	}

	if cfg.Executor == nil {
		return nil, errMissingExecutor
	}

	addr := cfg.ListenAddr
	if addr == "" {
		addr = DefaultListenAddr
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Server{
		addr:           addr,
		allowedOrigins: cfg.AllowedOrigins,
		hub:            cfg.Hub,
		exec:           cfg.Executor,
		state:          cfg.State,
		logger:         log,
		router:         mux.NewRouter(),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware, s.corsMiddleware)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/input", s.handleInput).Methods(http.MethodPost, http.MethodOptions)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.srv = &http.Server{
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Display server listening")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Display server stopped")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Failed to upgrade to WebSocket")

		return
	}

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Renderer connected")

	c := newClient(s.hub, conn)
	s.hub.register(c)

	go c.writePump()
	go c.readPump()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.state == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), stateTimeout)
	defer cancel()

	doc, err := s.snapshot(ctx)
	if err != nil {
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// snapshot evaluates the state function on the executor so it sees a
// consistent view.
func (s *Server) snapshot(ctx context.Context) (interface{}, error) {
	result := make(chan interface{}, 1)

	if !s.exec.Post(func() { result <- s.state() }) {
		return nil, errStateTimeout
	}

	select {
	case doc := <-result:
		return doc, nil
	case <-ctx.Done():
		return nil, errStateTimeout
	}
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req InputRequest

	body := http.MaxBytesReader(w, r.Body, maxInputBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "invalid input request", http.StatusBadRequest)
		return
	}

	if req.Source == "" {
		req.Source = "api"
	}

	s.hub.deliver(InboundMessage{Type: MessageInput, Source: req.Source})

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.originAllowed(origin) {
		return true
	}

	s.logger.Warn().
		Str("origin", origin).
		Strs("allowed_origins", s.allowedOrigins).
		Msg("WebSocket origin not allowed")

	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Message: message, Status: status})
}
