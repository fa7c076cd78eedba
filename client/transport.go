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
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/propagation"

	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

// Transport is an http.RoundTripper that opens an "http.client" span for each
// request made under a current span. Concurrent requests under one parent
// each get their own span.
type Transport struct {
	base http.RoundTripper
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport wraps base. A nil base uses http.DefaultTransport.
func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &Transport{base: base}
}

// WrapClient returns a shallow copy of c whose transport is traced.
func WrapClient(c *http.Client) *http.Client {
	if c == nil {
		c = http.DefaultClient
	}
	wrapped := *c
	wrapped.Transport = NewTransport(c.Transport)

	return &wrapped
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// modified; transport errors and panics reach the caller unchanged.
func (t *Transport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	parent := scope.Current(req.Context())
	if parent == nil {
		return t.base.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	var pending scope.Pending
	OnRequest(parent, tracing.OpHTTPClient, describe(req), propagation.HeaderCarrier(req.Header), &pending)

	defer func() {
		if r := recover(); r != nil {
			OnFailure(&pending, fmt.Errorf("panic in round trip: %v", r))
			panic(r)
		}
	}()

	resp, err = t.base.RoundTrip(req)
	if err != nil {
		OnFailure(&pending, err)
		return nil, err
	}
	OnResponse(&pending, resp.StatusCode)

	return resp, nil
}

func describe(req *http.Request) string {
	return req.Method + " " + req.URL.Redacted()
}
