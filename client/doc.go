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

// Package client instruments outbound calls so that each request made while a
// span is current becomes a child span and carries the "sentry-trace" header
// to the downstream service.
//
// Every integration is built from the same pair of hooks. [OnRequest] starts
// the child and parks it in a [scope.Pending] cell; [OnResponse] or
// [OnFailure] takes it back out and finishes it. The take is atomic, so a
// span is finished once even when both hooks fire.
//
// Integrations:
//
//   - [Transport] and [WrapClient] for net/http, one cell per round trip
//   - [Client] for worker-bound code, using the worker's [scope.Local] cell
//   - [InstrumentResty] for github.com/go-resty/resty/v2 clients
//   - [UnaryClientInterceptor] for gRPC unary calls
//
// Calls made without a current span are passed through untouched.
package client
