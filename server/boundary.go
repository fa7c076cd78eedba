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

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/traceprop/naming"
	"rivaas.dev/traceprop/traceheader"
	"rivaas.dev/traceprop/tracing"
)

// requestState is the lifecycle of one inbound request.
type requestState int32

const (
	stateIdle requestState = iota
	stateStarted
	stateCompleted
)

// boundary owns the transaction of one inbound request. It starts once and
// completes once; every integration drives the same transitions.
type boundary struct {
	tracer  *tracing.Tracer
	req     *http.Request
	method  string
	rawPath string

	state atomic.Int32
	tx    *tracing.Transaction
}

func newBoundary(tracer *tracing.Tracer, r *http.Request) *boundary {
	return &boundary{
		tracer:  tracer,
		req:     r,
		method:  r.Method,
		rawPath: r.URL.EscapedPath(),
	}
}

// start opens the transaction, continuing the caller's trace when the request
// carries a usable header. It returns nil if the boundary already started.
func (b *boundary) start(ctx context.Context) *tracing.Transaction {
	if !b.state.CompareAndSwap(int32(stateIdle), int32(stateStarted)) {
		return nil
	}
	b.tx = b.tracer.StartTransaction(ctx, b.method+" "+b.rawPath, tracing.OpHTTPServer, b.parent())
	// whether the request is reported is only known once it is routed
	b.tx.BufferChildren()

	return b.tx
}

func (b *boundary) parent() *traceheader.Token {
	if value := b.req.Header.Get(traceheader.HeaderName); value != "" {
		tok, err := traceheader.Decode(value)
		if err != nil {
			b.tracer.Emit(tracing.EventDebug, "Ignoring invalid trace header",
				"header", traceheader.HeaderName,
				"value", value,
				"error", err,
			)

			return nil
		}

		return &tok
	}

	if p := b.tracer.GetPropagator(); p != nil {
		sc := trace.SpanContextFromContext(p.Extract(context.Background(), propagation.HeaderCarrier(b.req.Header)))
		if sc.IsValid() {
			tok := traceheader.FromSpanContext(sc)
			return &tok
		}
	}

	return nil
}

// complete finalizes the transaction. A request that was never routed is
// discarded. A zero code means no response status exists and is recorded as
// 500. It returns false when the boundary was not started or has already
// completed.
func (b *boundary) complete(route naming.Route, code int, err error) bool {
	if !b.state.CompareAndSwap(int32(stateStarted), int32(stateCompleted)) {
		return false
	}

	name, ok := naming.Resolve(b.method, b.rawPath, route)
	if !ok {
		b.tx.Discard()
		return true
	}

	if code == 0 {
		code = http.StatusInternalServerError
	}
	b.tx.SetName(name)
	b.tx.SetOperation(tracing.OpHTTPServer)
	b.tx.SetRequest(tracing.ResolveRequest(b.req, b.tracer.SendDefaultPII()))
	b.tx.RecordError(err)
	b.tx.SetHTTPStatus(code)
	b.tx.Finish()

	return true
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}

	return fmt.Errorf("panic: %v", p)
}
