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

package traceheader

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// A deferred decision has no equivalent in W3C trace flags, so it rides in
// the tracestate until a local sampler resolves it.
const (
	stateKey      = "sentry"
	stateDeferred = "deferred"
)

// SpanContext converts t into a remote OpenTelemetry span context.
func (t Token) SpanContext() trace.SpanContext {
	cfg := trace.SpanContextConfig{
		TraceID: t.TraceID,
		SpanID:  t.SpanID,
		Remote:  true,
	}

	switch t.Sampled {
	case Sampled:
		cfg.TraceFlags = trace.FlagsSampled
	case Deferred:
		if ts, err := (trace.TraceState{}).Insert(stateKey, stateDeferred); err == nil {
			cfg.TraceState = ts
		}
	}

	return trace.NewSpanContext(cfg)
}

// FromSpanContext builds the token describing sc.
func FromSpanContext(sc trace.SpanContext) Token {
	tok := Token{TraceID: sc.TraceID(), SpanID: sc.SpanID(), Sampled: NotSampled}
	switch {
	case sc.IsSampled():
		tok.Sampled = Sampled
	case IsDeferred(sc):
		tok.Sampled = Deferred
	}

	return tok
}

// IsDeferred reports whether sc still carries an unresolved sampling decision.
func IsDeferred(sc trace.SpanContext) bool {
	return !sc.IsSampled() && sc.TraceState().Get(stateKey) == stateDeferred
}

// ResolveDeferred removes the deferred marker from ts.
func ResolveDeferred(ts trace.TraceState) trace.TraceState {
	return ts.Delete(stateKey)
}

// Propagator carries span context in the sentry-trace header. It can be
// composed with other propagators via propagation.NewCompositeTextMapPropagator.
type Propagator struct{}

var _ propagation.TextMapPropagator = Propagator{}

// Inject writes the header for the span context in ctx, if it is valid.
func (Propagator) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}
	carrier.Set(HeaderName, Encode(FromSpanContext(sc)))
}

// Extract returns ctx with the remote span context read from carrier.
// Absent or malformed headers leave ctx unchanged.
func (Propagator) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	value := carrier.Get(HeaderName)
	if value == "" {
		return ctx
	}
	tok, err := Decode(value)
	if err != nil {
		return ctx
	}

	return trace.ContextWithRemoteSpanContext(ctx, tok.SpanContext())
}

// Fields returns the header names this propagator uses.
func (Propagator) Fields() []string {
	return []string{HeaderName}
}
