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

package tracing

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/traceprop/traceheader"
)

// Span attribute keys.
const (
	AttrOperation   = attribute.Key("span.op")
	AttrDescription = attribute.Key("span.description")
	AttrStatus      = attribute.Key("span.status")
	AttrHTTPStatus  = attribute.Key("http.response.status_code")
)

// Well-known operations.
const (
	OpHTTPServer = "http.server"
	OpHTTPClient = "http.client"
	OpGRPCClient = "grpc.client"
)

// Span is a timed unit of work. Setters are no-ops once the span is finished,
// and Finish takes effect exactly once no matter how many callers race on it.
type Span struct {
	tracer *Tracer
	otel   trace.Span
	ctx    context.Context
	root   *Transaction

	mu          sync.Mutex
	op          string
	description string
	status      Status
	httpStatus  int
	finished    atomic.Bool

	beforeEnd func()
}

func (t *Tracer) newSpan(ctx context.Context, sp trace.Span, op string) *Span {
	t.recorder.SpanStarted(ctx, op)

	return &Span{tracer: t, otel: sp, ctx: ctx, op: op}
}

func spanKind(op string) trace.SpanKind {
	switch {
	case strings.HasSuffix(op, ".server"):
		return trace.SpanKindServer
	case strings.HasSuffix(op, ".client"):
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

// StartChild starts a span below s with operation op.
func (s *Span) StartChild(op string, opts ...trace.SpanStartOption) *Span {
	opts = append([]trace.SpanStartOption{trace.WithSpanKind(spanKind(op))}, opts...)
	ctx, sp := s.tracer.tracer.Start(s.ctx, op, opts...)
	child := s.tracer.newSpan(ctx, sp, op)
	child.root = s.root

	return child
}

// Context returns a context carrying this span for OpenTelemetry-aware code.
func (s *Span) Context() context.Context {
	return s.ctx
}

// SpanContext returns the OpenTelemetry span context.
func (s *Span) SpanContext() trace.SpanContext {
	return s.otel.SpanContext()
}

// OpenTelemetry returns the underlying OpenTelemetry span.
func (s *Span) OpenTelemetry() trace.Span {
	return s.otel
}

// Token returns the header token identifying this span to downstream services.
func (s *Span) Token() traceheader.Token {
	return traceheader.FromSpanContext(s.otel.SpanContext())
}

// Tracer returns the tracer that started s.
func (s *Span) Tracer() *Tracer {
	return s.tracer
}

// Operation returns the span operation, e.g. "http.client".
func (s *Span) Operation() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.op
}

// Description returns the span description.
func (s *Span) Description() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.description
}

// Status returns the current status.
func (s *Span) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// IsFinished reports whether Finish (or Discard, for transactions) took effect.
func (s *Span) IsFinished() bool {
	return s.finished.Load()
}

// update runs fn under the span lock unless the span is finished.
func (s *Span) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished.Load() {
		return
	}
	fn()
}

// SetDescription sets a human readable description, e.g. "GET https://api/x".
func (s *Span) SetDescription(description string) {
	s.update(func() { s.description = description })
}

// SetStatus sets the span status.
func (s *Span) SetStatus(status Status) {
	s.update(func() { s.status = status })
}

// SetHTTPStatus records the response code and derives the status from it.
func (s *Span) SetHTTPStatus(code int) {
	s.update(func() {
		s.httpStatus = code
		s.status = StatusFromHTTP(code)
	})
}

// SetAttributes adds attributes to the underlying span.
func (s *Span) SetAttributes(kv ...attribute.KeyValue) {
	s.update(func() { s.otel.SetAttributes(kv...) })
}

// RecordError attaches err to the span as an exception event.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.update(func() { s.otel.RecordError(err) })
}

// Finish ends the span. It returns true for the single call that took effect.
func (s *Span) Finish() bool {
	s.mu.Lock()
	if !s.finished.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return false
	}
	op, description, status, code := s.op, s.description, s.status, s.httpStatus
	s.mu.Unlock()

	attrs := []attribute.KeyValue{AttrOperation.String(op)}
	if description != "" {
		attrs = append(attrs, AttrDescription.String(description))
		s.otel.SetName(description)
	}
	if code != 0 {
		attrs = append(attrs, AttrHTTPStatus.Int(code))
	}
	if status != StatusUnset {
		attrs = append(attrs, AttrStatus.String(string(status)))
		s.otel.SetStatus(status.Code(), string(status))
	}
	s.otel.SetAttributes(attrs...)

	if s.beforeEnd != nil {
		s.beforeEnd()
	}
	if s.root == nil || s.root.Span == s || !s.root.hold(s.otel, time.Now()) {
		s.otel.End()
	}
	s.tracer.recorder.SpanFinished(s.ctx, op, string(status))

	return true
}
