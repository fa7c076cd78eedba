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

package tracing

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Request attribute keys set on finished transactions.
const (
	AttrRequestMethod = attribute.Key("http.request.method")
	AttrURLFull       = attribute.Key("url.full")
	AttrURLQuery      = attribute.Key("url.query")
	AttrCookies       = attribute.Key("http.request.cookies")

	attrPrefixHeader = "http.request.header."
)

// Transaction is the root span of one logical request. Its name may change
// until it is finished or discarded; exactly one of the two takes effect.
type Transaction struct {
	*Span

	name      string
	request   *Request
	discarded atomic.Bool

	heldMu    sync.Mutex
	buffering bool
	closed    bool
	held      []heldSpan
}

// heldSpan is a finished child waiting for its transaction.
type heldSpan struct {
	span trace.Span
	end  time.Time
}

// Name returns the transaction name.
func (t *Transaction) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.name
}

// SetName renames the transaction. No-op once finished.
func (t *Transaction) SetName(name string) {
	t.update(func() { t.name = name })
}

// SetOperation replaces the operation chosen at start. No-op once finished.
func (t *Transaction) SetOperation(op string) {
	t.update(func() { t.op = op })
}

// SetRequest attaches request metadata reported on finish.
func (t *Transaction) SetRequest(r *Request) {
	t.update(func() { t.request = r })
}

// Request returns the attached request metadata, or nil.
func (t *Transaction) Request() *Request {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.request
}

// Discard closes the transaction without reporting it. It returns true when
// it took effect, i.e. the transaction was not already finished or discarded.
func (t *Transaction) Discard() bool {
	t.mu.Lock()
	if !t.finished.CompareAndSwap(false, true) {
		t.mu.Unlock()
		return false
	}
	op := t.op
	t.mu.Unlock()

	t.discarded.Store(true)
	t.release(true)
	t.tracer.recorder.TransactionDiscarded(t.ctx, op)

	return true
}

// BufferChildren makes descendants that finish before t wait for it. They
// are exported, with their own end times, when t finishes and dropped when t
// is discarded. Descendants finishing after t are exported at once, or
// dropped if t was discarded.
func (t *Transaction) BufferChildren() {
	t.heldMu.Lock()
	t.buffering = true
	t.heldMu.Unlock()
}

// hold takes ownership of a finished descendant. It returns false when the
// caller must end the span itself.
func (t *Transaction) hold(sp trace.Span, end time.Time) bool {
	t.heldMu.Lock()
	defer t.heldMu.Unlock()
	if !t.buffering {
		return false
	}
	if t.closed {
		return t.discarded.Load()
	}
	t.held = append(t.held, heldSpan{span: sp, end: end})

	return true
}

// release ends the held descendants, or drops them.
func (t *Transaction) release(drop bool) {
	t.heldMu.Lock()
	held := t.held
	t.held, t.closed = nil, true
	t.heldMu.Unlock()

	if drop {
		return
	}
	for _, h := range held {
		h.span.End(trace.WithTimestamp(h.end))
	}
}

// IsDiscarded reports whether Discard took effect.
func (t *Transaction) IsDiscarded() bool {
	return t.discarded.Load()
}

// applyFinal runs inside Finish, after the span is sealed.
func (t *Transaction) applyFinal() {
	defer t.release(false)

	t.mu.Lock()
	name, req := t.name, t.request
	t.mu.Unlock()

	t.otel.SetName(name)
	if req == nil {
		return
	}

	attrs := make([]attribute.KeyValue, 0, 3+len(req.Headers))
	attrs = append(attrs,
		AttrRequestMethod.String(req.Method),
		AttrURLFull.String(req.URL),
	)
	if req.QueryString != "" {
		attrs = append(attrs, AttrURLQuery.String(req.QueryString))
	}
	for k, v := range req.Headers {
		attrs = append(attrs, attribute.String(attrPrefixHeader+strings.ToLower(k), v))
	}
	if req.Cookies != nil {
		attrs = append(attrs, AttrCookies.String(*req.Cookies))
	}
	t.otel.SetAttributes(attrs...)
}
