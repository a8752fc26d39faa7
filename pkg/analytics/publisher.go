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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/exhibitd/pkg/logger"
)

// Publisher sends exhibit events to a JetStream stream.
type Publisher struct {
	js      jetstream.JetStream
	nc      *nats.Conn
	stream  string
	subject string
	source  string
	timeout time.Duration
	logger  logger.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// Connect dials NATS, makes sure the stream captures the configured subject
// and returns a Publisher that owns the connection.
func Connect(ctx context.Context, cfg *Config, log logger.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	nc, err := connect(cfg, log)
	if err != nil {
		return nil, err
	}

	js, err := newJetStream(nc, cfg.Domain)
	if err != nil {
		nc.Close()
		return nil, err
	}

	if err := ensureStream(ctx, js, cfg.Stream, cfg.Subject+".>"); err != nil {
		nc.Close()
		return nil, err
	}

	p := NewPublisher(js, cfg, log)
	p.nc = nc

	log.Info().
		Str("stream", cfg.Stream).
		Str("subject", cfg.Subject).
		Msg("Analytics publisher initialized")

	return p, nil
}

// NewPublisher wraps an existing JetStream context. cfg must be validated.
func NewPublisher(js jetstream.JetStream, cfg *Config, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Publisher{
		js:      js,
		stream:  cfg.Stream,
		subject: cfg.Subject,
		source:  cfg.Source,
		timeout: cfg.PublishTimeout.Std(),
		logger:  log,
	}
}

func connect(cfg *Config, log logger.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("exhibitd"),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.TLS != nil {
		tlsConf, err := tlsConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

func newJetStream(nc *nats.Conn, domain string) (jetstream.JetStream, error) {
	if domain != "" {
		js, err := jetstream.NewWithDomain(nc, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", domain, err)
		}

		return js, nil
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return js, nil
}

// ensureStream creates the stream when missing, or widens an existing
// stream's subjects so it captures subject.
func ensureStream(ctx context.Context, js jetstream.JetStream, name, subject string) error {
	stream, err := js.Stream(ctx, name)
	if err != nil {
		if !isStreamMissingErr(err) {
			return fmt.Errorf("failed to look up stream %s: %w", name, err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     name,
			Subjects: []string{subject},
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}

		return nil
	}

	cfg := stream.CachedInfo().Config
	subjects := ensureSubjectList(cfg.Subjects, subject)

	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if _, err := js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to add subject %s to stream %s: %w", subject, name, err)
	}

	return nil
}

// Publish sends one event and waits for the stream acknowledgement.
func (p *Publisher) Publish(ctx context.Context, eventType string, data EventData) error {
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now()
	}

	ts := data.Timestamp.UTC()

	event := CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          p.source,
		Type:            cloudEventTypePrefix + eventType,
		DataContentType: "application/json",
		Subject:         p.subject + "." + eventType,
		Time:            &ts,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, payload)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published analytics event")

	return nil
}

// PublishAsync publishes on its own goroutine bounded by the publish
// timeout. Failures are logged.
func (p *Publisher) PublishAsync(eventType string, data EventData) {
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.Publish(ctx, eventType, data); err != nil {
			p.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish analytics event")
		}
	}()
}

func (p *Publisher) AttractorStarted(data EventData) {
	p.PublishAsync(EventAttractorStarted, data)
}

func (p *Publisher) AttractorStopped(data EventData) {
	p.PublishAsync(EventAttractorStopped, data)
}

func (p *Publisher) SyncStarted(data EventData) {
	p.PublishAsync(EventSyncStarted, data)
}

func (p *Publisher) CommandExecuted(data EventData) {
	p.PublishAsync(EventCommandExecuted, data)
}

// Close waits for in-flight publishes and drains the connection it owns.
func (p *Publisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()

	if p.nc == nil {
		return nil
	}

	return p.nc.Drain()
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}

// ensureSubjectList appends subject unless an existing pattern already
// covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether a NATS subject pattern covers subject.
// subject may itself end in a wildcard, in which case the pattern has to be
// at least as wide.
func matchesSubject(pattern, subject string) bool {
	pt := splitSubject(pattern)
	st := splitSubject(subject)

	for i, token := range pt {
		if token == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		switch {
		case token == "*" && st[i] != ">":
		case token == st[i]:
		default:
			return false
		}
	}

	return len(pt) == len(st)
}

func splitSubject(subject string) []string {
	return strings.Split(subject, ".")
}
