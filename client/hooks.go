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

package client

import (
	"go.opentelemetry.io/otel/propagation"

	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/traceheader"
	"rivaas.dev/traceprop/tracing"
)

// OnRequest is the request half of the outbound pair. Under a nil or
// finished parent it does nothing and returns nil. Otherwise it starts a child span with
// operation op, writes the trace header into carrier and parks the child in
// pending until [OnResponse] or [OnFailure] takes it.
func OnRequest(parent *tracing.Span, op, description string, carrier propagation.TextMapCarrier, pending *scope.Pending) *tracing.Span {
	if parent == nil || parent.IsFinished() || !parent.Tracer().IsEnabled() {
		return nil
	}

	child := parent.StartChild(op)
	child.SetDescription(description)
	inject(child, carrier)

	// a previous attempt on the same cell never saw its response
	if stale := pending.Store(child); stale != nil {
		stale.SetStatus(tracing.StatusInternalError)
		stale.Finish()
	}

	return child
}

// OnResponse finishes the pending child with the status derived from code.
func OnResponse(pending *scope.Pending, code int) {
	child := pending.Take()
	if child == nil {
		return
	}
	child.SetHTTPStatus(code)
	child.Finish()
}

// OnFailure finishes the pending child as an internal error. The error is
// recorded on the span; callers still return it unchanged.
func OnFailure(pending *scope.Pending, err error) {
	child := pending.Take()
	if child == nil {
		return
	}
	child.RecordError(err)
	child.SetStatus(tracing.StatusInternalError)
	child.Finish()
}

func inject(child *tracing.Span, carrier propagation.TextMapCarrier) {
	if tok := child.Token(); tok.IsValid() {
		carrier.Set(traceheader.HeaderName, traceheader.Encode(tok))
	}
	if p := child.Tracer().GetPropagator(); p != nil {
		p.Inject(child.Context(), carrier)
	}
}
