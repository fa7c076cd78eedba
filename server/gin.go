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

	"github.com/gin-gonic/gin"

	"rivaas.dev/traceprop/naming"
	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

// Gin is [Middleware] for gin engines. The route template is c.FullPath(),
// which is empty for requests gin could not route.
//
// Example:
//
//	r := gin.New()
//	r.Use(server.Gin(tracer))
//	r.GET("/users/:id", getUser)
func Gin(tracer *tracing.Tracer, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts...)

	return func(c *gin.Context) {
		if !tracer.IsEnabled() || cfg.filter.shouldExclude(c.Request.URL.Path) {
			c.Next()
			return
		}

		b := newBoundary(tracer, c.Request)
		tx := b.start(c.Request.Context())
		ctx, rec := naming.WithRecorder(scope.WithSpan(c.Request.Context(), tx.Span))
		c.Request = c.Request.WithContext(ctx)

		defer func() {
			if p := recover(); p != nil {
				b.complete(ginRoute(c, rec), http.StatusInternalServerError, panicError(p))
				panic(p)
			}
		}()

		c.Next()

		var err error
		if last := c.Errors.Last(); last != nil {
			err = last
		}
		b.complete(ginRoute(c, rec), c.Writer.Status(), err)
	}
}

func ginRoute(c *gin.Context, rec *naming.Recorder) naming.Route {
	if route := rec.Route(); route.Routed() {
		return route
	}
	if path := c.FullPath(); path != "" {
		return naming.Route{Template: path, Matched: true}
	}

	return naming.Route{}
}
