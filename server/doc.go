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

// Package server opens an "http.server" transaction for every inbound request
// and closes it exactly once when the request completes.
//
// On arrival the "sentry-trace" header, if valid, makes the transaction part
// of the caller's trace; an absent or malformed header starts a new trace. On
// completion the transaction is named after the matched route, enriched with
// sanitized request metadata and finished with the status derived from the
// response code. Requests that matched no route are discarded.
//
// # Integrations
//
//   - [Middleware] for net/http, including http.ServeMux and chi ([ChiRoute])
//   - [Gin] and [Echo] for those frameworks
//   - [Pool] runs handlers on workers that hold the current span in a
//     [scope.Local], for code written in a blocking style
//   - [AsyncFilter] for continuation-style handlers that complete an
//     [Exchange] from another goroutine
//
// # Status
//
// A handler that panics or fails without writing a response is recorded as
// 500. A request whose client went away first is recorded as cancelled.
package server
