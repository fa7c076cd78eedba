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

// Package naming derives transaction names from routing metadata.
//
// A request that matched a route template is named after the template
// ("GET /users/{id}") to keep the set of names small. A request that reached
// user code without a template falls back to its raw path. A request that was
// never routed has no name, and its transaction is discarded.
package naming

import (
	"context"
	"strings"
	"sync"
)

// Route is the routing metadata available once a request has completed.
type Route struct {
	// Template is the matched route pattern, e.g. "/users/{id}".
	Template string
	// Matched is true when the request reached a handler, with or without a template.
	Matched bool
}

// Routed reports whether any routing happened.
func (r Route) Routed() bool {
	return r.Matched || r.Template != ""
}

// Resolve returns the transaction name for a completed request, or false when
// the request never reached a route.
func Resolve(method, rawPath string, route Route) (string, bool) {
	switch {
	case route.Template != "":
		return method + " " + route.Template, true
	case route.Matched:
		return method + " " + rawPath, true
	default:
		return "", false
	}
}

// StripPattern reduces an http.ServeMux pattern ("GET example.com/users/{id}")
// to its path component ("/users/{id}").
func StripPattern(pattern string) string {
	if pattern == "" {
		return ""
	}
	if _, rest, ok := strings.Cut(pattern, " "); ok {
		pattern = strings.TrimLeft(rest, " \t")
	}
	if i := strings.IndexByte(pattern, '/'); i > 0 {
		pattern = pattern[i:]
	}

	return pattern
}

// Recorder collects routing metadata for one request. Routers and handlers
// write to it; the inbound boundary reads it at completion.
type Recorder struct {
	mu    sync.Mutex
	route Route
}

type recorderKey struct{}

// WithRecorder returns a context carrying a fresh [Recorder].
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	rec := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

// RecorderFrom returns the recorder in ctx, or nil.
func RecorderFrom(ctx context.Context) *Recorder {
	rec, _ := ctx.Value(recorderKey{}).(*Recorder)
	return rec
}

// Record stores the matched route template. Empty templates only mark the
// request as matched.
func (r *Recorder) Record(template string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.route.Matched = true
	if template != "" {
		r.route.Template = template
	}
}

// MarkMatched records that the request reached a handler.
func (r *Recorder) MarkMatched() {
	r.Record("")
}

// Route returns a snapshot of the recorded metadata.
func (r *Recorder) Route() Route {
	if r == nil {
		return Route{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.route
}

// Record is shorthand for RecorderFrom(ctx).Record(template).
func Record(ctx context.Context, template string) {
	RecorderFrom(ctx).Record(template)
}
