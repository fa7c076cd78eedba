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
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/propagation"

	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

// Interceptor adjusts a request once it is built and before it is sent.
type Interceptor func(ctx context.Context, req *http.Request)

// TraceInterceptor starts the child span for a request issued from a worker
// and parks it in the call's pending cell (see scope.WithPending). Without
// one it falls back to the worker's own cell, which holds a single call at a
// time. The request headers are written in place.
func TraceInterceptor(ctx context.Context, req *http.Request) {
	binding := scope.LocalFrom(ctx)
	pending := scope.PendingFrom(ctx)
	if pending == nil {
		pending = binding.Pending()
	}
	OnRequest(binding.Get(), tracing.OpHTTPClient, describe(req), propagation.HeaderCarrier(req.Header), pending)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the blocking outbound pair for thread-per-request servers: the
// trace interceptor runs when the request is built, and the span it parked
// on the worker is finished once Do returns, whatever the outcome.
type Client struct {
	doer         Doer
	interceptors []Interceptor
}

// NewClient wraps doer. Extra interceptors run after [TraceInterceptor].
func NewClient(doer Doer, interceptors ...Interceptor) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}

	return &Client{
		doer:         doer,
		interceptors: append([]Interceptor{TraceInterceptor}, interceptors...),
	}
}

// Do sends req. The request context must carry the worker slot
// (see scope.WithLocal) for a span to be recorded. Each call parks its child
// in a cell of its own, so concurrent calls from one request never finish
// each other's spans.
func (c *Client) Do(req *http.Request) (resp *http.Response, err error) {
	pending := new(scope.Pending)
	ctx := scope.WithPending(req.Context(), pending)
	for _, intercept := range c.interceptors {
		intercept(ctx, req)
	}

	defer func() {
		if r := recover(); r != nil {
			OnFailure(pending, fmt.Errorf("panic in client: %v", r))
			panic(r)
		}
	}()

	resp, err = c.doer.Do(req)
	if err != nil {
		OnFailure(pending, err)
		return resp, err
	}
	OnResponse(pending, resp.StatusCode)

	return resp, nil
}
