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
	"net/http"
	"strings"

	"rivaas.dev/traceprop/naming"
)

// Option configures an inbound integration.
type Option func(*config)

// RouteExtractor reads routing metadata from a completed request.
type RouteExtractor func(r *http.Request) naming.Route

type config struct {
	extractor RouteExtractor
	filter    *pathFilter
}

func newConfig(opts ...Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// WithRouteExtractor sets how a router's match is read once the handler
// returns. Metadata recorded through [naming.Record] takes precedence.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(server.Middleware(tracer, server.WithRouteExtractor(server.ChiRoute)))
func WithRouteExtractor(fn RouteExtractor) Option {
	return func(c *config) {
		c.extractor = fn
	}
}

// WithExcludePaths skips tracing for the given exact paths, e.g. health checks.
func WithExcludePaths(paths ...string) Option {
	return func(c *config) {
		if c.filter == nil {
			c.filter = newPathFilter()
		}
		c.filter.addPaths(paths...)
	}
}

// WithExcludePrefixes skips tracing for paths under any of the given prefixes.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(c *config) {
		if c.filter == nil {
			c.filter = newPathFilter()
		}
		c.filter.addPrefixes(prefixes...)
	}
}

// route picks the most specific routing metadata available for r.
func (c *config) route(r *http.Request, rec *naming.Recorder) naming.Route {
	if route := rec.Route(); route.Routed() {
		return route
	}
	if c.extractor != nil {
		if route := c.extractor(r); route.Routed() {
			return route
		}
	}
	if r.Pattern != "" {
		return naming.Route{Template: naming.StripPattern(r.Pattern), Matched: true}
	}

	return naming.Route{}
}

type pathFilter struct {
	paths    map[string]bool
	prefixes []string
}

func newPathFilter() *pathFilter {
	return &pathFilter{paths: make(map[string]bool)}
}

func (pf *pathFilter) addPaths(paths ...string) {
	for _, p := range paths {
		pf.paths[p] = true
	}
}

func (pf *pathFilter) addPrefixes(prefixes ...string) {
	pf.prefixes = append(pf.prefixes, prefixes...)
}

func (pf *pathFilter) shouldExclude(path string) bool {
	if pf == nil {
		return false
	}
	if pf.paths[path] {
		return true
	}
	for _, prefix := range pf.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}
