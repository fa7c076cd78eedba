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
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"rivaas.dev/traceprop/naming"
	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

// ErrExchangeClosed is returned by writes on an [Exchange] that has completed.
var ErrExchangeClosed = errors.New("server: exchange closed")

// AsyncHandler starts the work for an exchange and returns. The work finishes
// later by calling [Exchange.Complete] or [Exchange.Fail], typically from a
// continuation started with [Exchange.Go].
type AsyncHandler func(ex *Exchange)

// AsyncFilter serves handlers written in continuation style. The transaction
// travels with the exchange context instead of a worker. It completes on the
// first of three signals: Complete, Fail, or cancellation of the request
// context. Later signals are ignored.
type AsyncFilter struct {
	tracer *tracing.Tracer
	cfg    *config
}

// NewAsyncFilter returns a filter tracing through tracer.
func NewAsyncFilter(tracer *tracing.Tracer, opts ...Option) *AsyncFilter {
	return &AsyncFilter{tracer: tracer, cfg: newConfig(opts...)}
}

// Handle adapts h to an http.Handler. ServeHTTP returns once the exchange has
// completed. A panic in h fails the exchange.
func (f *AsyncFilter) Handle(h AsyncHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := f.newExchange(w, r)
		if p := runRecovered(func() { h(ex) }); p != nil {
			ex.Fail(panicError(p))
		}
		<-ex.done
	})
}

// Exchange is one in-flight request served by an [AsyncFilter]. Its methods
// are safe for concurrent use.
type Exchange struct {
	id     string
	req    *http.Request
	w      http.ResponseWriter
	b      *boundary
	cfg    *config
	rec    *naming.Recorder
	traced bool

	mu      sync.Mutex
	ctx     context.Context
	status  int
	written bool
	closed  bool

	stopCancel func() bool
	done       chan struct{}
}

func (f *AsyncFilter) newExchange(w http.ResponseWriter, r *http.Request) *Exchange {
	ex := &Exchange{
		id:   uuid.NewString(),
		w:    w,
		cfg:  f.cfg,
		done: make(chan struct{}),
	}

	ctx := r.Context()
	if f.tracer.IsEnabled() && !f.cfg.filter.shouldExclude(r.URL.Path) {
		ex.traced = true
		ex.b = newBoundary(f.tracer, r)
		tx := ex.b.start(ctx)
		ctx = scope.WithSpan(ctx, tx.Span)
	}
	ctx, ex.rec = naming.WithRecorder(ctx)
	ex.ctx = ctx
	ex.req = r.WithContext(ctx)
	ex.stopCancel = context.AfterFunc(r.Context(), ex.cancel)

	return ex
}

// ID returns the exchange identifier.
func (e *Exchange) ID() string { return e.id }

// Request returns the request, with the exchange context.
func (e *Exchange) Request() *http.Request { return e.req }

// Context returns the context continuations should run under. Once the
// exchange completes it no longer carries a current span.
func (e *Exchange) Context() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.ctx
}

// Done is closed when the exchange completes.
func (e *Exchange) Done() <-chan struct{} { return e.done }

// SetRoute records the route template that matched this exchange.
func (e *Exchange) SetRoute(template string) {
	e.rec.Record(template)
}

// Header returns the response headers.
func (e *Exchange) Header() http.Header { return e.w.Header() }

// WriteHeader sends the response status.
func (e *Exchange) WriteHeader(code int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrExchangeClosed
	}
	if !e.written {
		e.status = code
		e.written = true
		e.w.WriteHeader(code)
	}

	return nil
}

// Write sends body bytes, implying a 200 status if none was sent.
func (e *Exchange) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrExchangeClosed
	}
	if !e.written {
		e.status = http.StatusOK
		e.written = true
	}

	return e.w.Write(p)
}

// Complete finishes the exchange successfully. It reports whether this call
// completed the exchange.
func (e *Exchange) Complete() bool {
	return e.finish(func(status int, written bool) int {
		if !written {
			return http.StatusOK
		}
		return status
	}, nil)
}

// Fail finishes the exchange with err. Without a written status the client
// gets a 500, which is also what is recorded.
func (e *Exchange) Fail(err error) bool {
	return e.finish(func(status int, written bool) int {
		if !written {
			http.Error(e.w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return http.StatusInternalServerError
		}
		return status
	}, err)
}

// cancel runs when the request context ends before completion.
func (e *Exchange) cancel() {
	e.finish(func(int, bool) int {
		return tracing.StatusClientClosedRequest
	}, context.Cause(e.req.Context()))
}

// Go runs fn on a new goroutine under the exchange context. A nil result
// completes the exchange, an error or panic fails it.
func (e *Exchange) Go(fn func(ctx context.Context) error) {
	ctx := e.Context()
	go func() {
		var err error
		if p := runRecovered(func() { err = fn(ctx) }); p != nil {
			e.Fail(panicError(p))
			return
		}
		if err != nil {
			e.Fail(err)
			return
		}
		e.Complete()
	}()
}

// finish closes the exchange exactly once. code picks the status to record
// and runs under the write lock.
func (e *Exchange) finish(code func(status int, written bool) int, err error) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.closed = true
	status := code(e.status, e.written)
	e.ctx, _ = scope.Detach(e.ctx)
	e.mu.Unlock()

	e.stopCancel()
	if e.traced {
		e.b.complete(e.cfg.route(e.req, e.rec), status, err)
	}
	close(e.done)

	return true
}
