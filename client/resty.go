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
	"errors"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/propagation"

	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

var instrumented sync.Map // *resty.Client -> struct{}

// InstrumentResty adds outbound tracing hooks to c and returns it. Calling it
// again on the same client is a no-op.
//
// The client's pre-request hook is replaced. Requests must carry the parent
// span in their context:
//
//	c := client.InstrumentResty(resty.New())
//	resp, err := c.R().SetContext(r.Context()).Get("https://billing/invoices")
func InstrumentResty(c *resty.Client) *resty.Client {
	if _, loaded := instrumented.LoadOrStore(c, struct{}{}); loaded {
		return c
	}

	c.OnBeforeRequest(restyAttachPending)
	c.SetPreRequestHook(restyStartChild)
	c.OnAfterResponse(restyFinish)
	c.OnSuccess(func(_ *resty.Client, resp *resty.Response) {
		_ = restyFinish(nil, resp)
	})
	c.OnError(restyFail)
	c.OnPanic(restyFail)

	return c
}

// restyAttachPending gives each call its own pending cell. Retries reuse the
// cell, so a span left open by a failed attempt is closed here.
func restyAttachPending(_ *resty.Client, req *resty.Request) error {
	ctx := req.Context()
	if scope.Current(ctx) == nil {
		return nil
	}
	if pending := scope.PendingFrom(ctx); pending != nil {
		OnFailure(pending, errors.New("retrying request"))
		return nil
	}
	req.SetContext(scope.WithPending(ctx, &scope.Pending{}))

	return nil
}

// restyStartChild runs once the raw request exists, so the span describes the
// final URL and the header lands on the wire request.
func restyStartChild(_ *resty.Client, raw *http.Request) error {
	ctx := raw.Context()
	pending := scope.PendingFrom(ctx)
	if pending == nil {
		return nil
	}
	OnRequest(scope.Current(ctx), tracing.OpHTTPClient, describe(raw), propagation.HeaderCarrier(raw.Header), pending)

	return nil
}

func restyFinish(_ *resty.Client, resp *resty.Response) error {
	if resp == nil || resp.Request == nil {
		return nil
	}
	OnResponse(scope.PendingFrom(resp.Request.Context()), resp.StatusCode())

	return nil
}

func restyFail(req *resty.Request, err error) {
	if req == nil {
		return
	}
	pending := scope.PendingFrom(req.Context())

	// a response that failed later, e.g. while decoding, keeps its status
	var respErr *resty.ResponseError
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.RawResponse != nil {
		OnResponse(pending, respErr.Response.StatusCode())
		return
	}
	OnFailure(pending, err)
}
