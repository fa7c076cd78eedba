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
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"rivaas.dev/traceprop/naming"
	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

// Echo is [Middleware] for echo servers. The route template is c.Path().
// Errors returned by the handler chain are recorded and passed on; an
// *echo.HTTPError supplies the status when the response was not written yet.
//
// Example:
//
//	e := echo.New()
//	e.Use(server.Echo(tracer))
//	e.GET("/users/:id", getUser)
func Echo(tracer *tracing.Tracer, opts ...Option) echo.MiddlewareFunc {
	cfg := newConfig(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			if !tracer.IsEnabled() || cfg.filter.shouldExclude(req.URL.Path) {
				return next(c)
			}

			b := newBoundary(tracer, req)
			tx := b.start(req.Context())
			ctx, rec := naming.WithRecorder(scope.WithSpan(req.Context(), tx.Span))
			c.SetRequest(req.WithContext(ctx))

			defer func() {
				if p := recover(); p != nil {
					b.complete(echoRoute(c, rec, nil), http.StatusInternalServerError, panicError(p))
					panic(p)
				}
			}()

			err = next(c)
			b.complete(echoRoute(c, rec, err), echoStatus(c, err), err)

			return err
		}
	}
}

func echoStatus(c echo.Context, err error) int {
	resp := c.Response()
	if err == nil || resp.Committed {
		return resp.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}

	return http.StatusInternalServerError
}

// echoRoute treats the router's own not-found and method-not-allowed
// handlers as "not routed".
func echoRoute(c echo.Context, rec *naming.Recorder, err error) naming.Route {
	if route := rec.Route(); route.Routed() {
		return route
	}
	path := c.Path()
	if path == "" {
		return naming.Route{}
	}
	if errors.Is(err, echo.ErrNotFound) || errors.Is(err, echo.ErrMethodNotAllowed) {
		if !echoRegistered(c.Echo(), c.Request().Method, path) {
			return naming.Route{}
		}
	}

	return naming.Route{Template: path, Matched: true}
}

func echoRegistered(e *echo.Echo, method, path string) bool {
	for _, r := range e.Routes() {
		if r.Path == path && r.Method == method {
			return true
		}
	}

	return false
}
