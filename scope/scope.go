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

// Package scope tracks which span is current for a logical request.
//
// Two models are supported. In the non-blocking model the span travels with
// the request's context.Context ([WithSpan], [FromContext], [Detach]). In the
// thread-per-request model a worker owns a [Local] slot that holds the span
// of the request it is serving and is cleared before the next one. Request
// code reaches the slot through a [Binding] that goes dark once the request
// ends.
//
// Outbound calls pair a request with its response through a [Pending] cell,
// one per call.
package scope

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/traceprop/tracing"
)

type spanKey struct{}

// WithSpan returns a context in which s is the current span. The OpenTelemetry
// span is installed too, so OpenTelemetry-aware code sees the same parent.
func WithSpan(ctx context.Context, s *tracing.Span) context.Context {
	ctx = context.WithValue(ctx, spanKey{}, s)
	if s != nil {
		ctx = trace.ContextWithSpan(ctx, s.OpenTelemetry())
	}

	return ctx
}

// FromContext returns the span bound to ctx, or nil.
func FromContext(ctx context.Context) *tracing.Span {
	s, _ := ctx.Value(spanKey{}).(*tracing.Span)
	return s
}

// Detach returns a context that no longer exposes a current span, together
// with the span that was bound before.
func Detach(ctx context.Context) (context.Context, *tracing.Span) {
	prior := FromContext(ctx)
	if prior == nil {
		return ctx, nil
	}
	ctx = context.WithValue(ctx, spanKey{}, (*tracing.Span)(nil))

	return trace.ContextWithSpanContext(ctx, trace.SpanContext{}), prior
}

// Current returns the span for the request ctx belongs to: the context-bound
// span if there is one, else the span in the worker slot carried by ctx. A
// worker binding whose request has ended yields nil.
func Current(ctx context.Context) *tracing.Span {
	if s := FromContext(ctx); s != nil {
		return s
	}

	return LocalFrom(ctx).Get()
}
