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

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName          = "exhibitd.poller"
	metricPingTotal    = "exhibitd_ping_total"
	metricPingDuration = "exhibitd_ping_duration_seconds"

	outcomeOK          = "ok"
	outcomeSkipped     = "skipped"
	outcomeNoEndpoint  = "no_endpoint"
	outcomeTransport   = "transport_error"
	outcomeBadStatus   = "bad_status"
	outcomeUndecodable = "undecodable"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	pingCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	pingLatency metric.Float64Histogram
)

func initMeter() {
	meter := otel.Meter(meterName)

	if counter, err := meter.Int64Counter(
		metricPingTotal,
		metric.WithDescription("Ping ticks by outcome"),
	); err != nil {
		otel.Handle(err)
	} else {
		pingCounter = counter
	}

	if hist, err := meter.Float64Histogram(
		metricPingDuration,
		metric.WithDescription("Round trip time of pings to the control server"),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
	} else {
		pingLatency = hist
	}
}

func recordOutcome(ctx context.Context, outcome string) {
	meterOnce.Do(initMeter)

	if pingCounter == nil {
		return
	}

	pingCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func recordLatency(ctx context.Context, d time.Duration) {
	meterOnce.Do(initMeter)

	if pingLatency == nil {
		return
	}

	pingLatency.Record(ctx, d.Seconds())
}
