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
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rivaas.dev/traceprop/naming"
	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

// Middleware traces each request as an "http.server" transaction bound to the
// request context.
//
// The transaction is named after the matched route once the handler returns.
// The route comes from [naming.Record], then the [RouteExtractor], then the
// http.ServeMux pattern. Requests that matched nothing are discarded.
//
// Panics are recorded as a 500 and re-raised unchanged.
//
// Example:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("GET /users/{id}", getUser)
//
//	handler := server.Middleware(tracer, server.WithExcludePaths("/health"))(mux)
//	http.ListenAndServe(":8080", handler)
func Middleware(tracer *tracing.Tracer, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tracer.IsEnabled() || cfg.filter.shouldExclude(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			b := newBoundary(tracer, r)
			tx := b.start(r.Context())
			ctx, rec := naming.WithRecorder(scope.WithSpan(r.Context(), tx.Span))
			r = r.WithContext(ctx)
			rw := newResponseWriter(w)

			defer func() {
				if p := recover(); p != nil {
					b.complete(cfg.route(r, rec), http.StatusInternalServerError, panicError(p))
					panic(p)
				}
			}()

			next.ServeHTTP(rw, r)
			b.complete(cfg.route(r, rec), rw.status(r.Context()), nil)
		})
	}
}

// ChiRoute reads the matched pattern from a chi router. Install the
// middleware with Router.Use so the routing context is visible to it.
func ChiRoute(r *http.Request) naming.Route {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return naming.Route{}
	}
	pattern := rctx.RoutePattern()

	return naming.Route{Template: pattern, Matched: pattern != ""}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

// Write marks the response as started.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}

	return rw.ResponseWriter.Write(b)
}

// status returns the code to record: the written status, 499 when the client
// went away before anything was written, else 200.
func (rw *responseWriter) status(ctx context.Context) int {
	if rw.written {
		return rw.statusCode
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return tracing.StatusClientClosedRequest
	}

	return http.StatusOK
}

// Flush implements http.Flusher.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		if !rw.written {
			rw.statusCode = http.StatusOK
			rw.written = true
		}
		f.Flush()
	}
}

// Hijack implements http.Hijacker for WebSocket support.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}

	return nil, nil, fmt.Errorf("underlying ResponseWriter doesn't support Hijack")
}

// Push implements http.Pusher for HTTP/2 server push.
func (rw *responseWriter) Push(target string, opts *http.PushOptions) error {
	if p, ok := rw.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}

	return http.ErrNotSupported
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController support.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
