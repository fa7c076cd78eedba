// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instrument names.
const (
	SpansStarted          = "traceprop.spans.started"
	SpansFinished         = "traceprop.spans.finished"
	TransactionsDiscarded = "traceprop.transactions.discarded"
	SpansActive           = "traceprop.spans.active"
)

const meterName = "rivaas.dev/traceprop"

var (
	attrOperation = attribute.Key("span.op")
	attrStatus    = attribute.Key("span.status")
)

// Recorder counts span lifecycle transitions. Every started span ends up in
// exactly one of finished or discarded, so a non-zero active count at rest
// points at a leaked span.
//
// A nil *Recorder records nothing.
type Recorder struct {
	started   metric.Int64Counter
	finished  metric.Int64Counter
	discarded metric.Int64Counter
	active    metric.Int64UpDownCounter
}

// NewRecorder creates the lifecycle instruments on mp. A nil mp yields a
// recorder backed by a noop meter.
func NewRecorder(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	var r Recorder
	var err, errs error

	r.started, err = meter.Int64Counter(SpansStarted,
		metric.WithDescription("Spans started"), metric.WithUnit("{span}"))
	errs = errors.Join(errs, err)

	r.finished, err = meter.Int64Counter(SpansFinished,
		metric.WithDescription("Spans finished and reported"), metric.WithUnit("{span}"))
	errs = errors.Join(errs, err)

	r.discarded, err = meter.Int64Counter(TransactionsDiscarded,
		metric.WithDescription("Transactions closed without being reported"), metric.WithUnit("{transaction}"))
	errs = errors.Join(errs, err)

	r.active, err = meter.Int64UpDownCounter(SpansActive,
		metric.WithDescription("Spans started but not yet finished or discarded"), metric.WithUnit("{span}"))
	errs = errors.Join(errs, err)

	if errs != nil {
		return nil, fmt.Errorf("failed to create lifecycle instruments: %w", errs)
	}

	return &r, nil
}

// SpanStarted records a started span with operation op.
func (r *Recorder) SpanStarted(ctx context.Context, op string) {
	if r == nil {
		return
	}
	set := metric.WithAttributes(attrOperation.String(op))
	r.started.Add(ctx, 1, set)
	r.active.Add(ctx, 1, set)
}

// SpanFinished records a finished span with its final status.
func (r *Recorder) SpanFinished(ctx context.Context, op, status string) {
	if r == nil {
		return
	}
	r.finished.Add(ctx, 1, metric.WithAttributes(attrOperation.String(op), attrStatus.String(status)))
	r.active.Add(ctx, -1, metric.WithAttributes(attrOperation.String(op)))
}

// TransactionDiscarded records a transaction closed without reporting.
func (r *Recorder) TransactionDiscarded(ctx context.Context, op string) {
	if r == nil {
		return
	}
	set := metric.WithAttributes(attrOperation.String(op))
	r.discarded.Add(ctx, 1, set)
	r.active.Add(ctx, -1, set)
}
