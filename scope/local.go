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


package scope

import (
	"context"
	"sync/atomic"

	"rivaas.dev/traceprop/tracing"
)

// Local is the slot a worker uses to hold the span of the request it is
// serving. The worker must Clear it before taking the next request.
//
// Code running for a request does not see the Local itself but a [Binding]
// taken when the request started. Clear ends every binding handed out so far,
// so a goroutine that outlives its request reads an empty slot rather than
// the span of whatever request the worker serves next.
//
// A nil *Local behaves as an always-empty slot.
type Local struct {
	epoch   atomic.Uint64
	current atomic.Pointer[tracing.Span]
	pending Pending
}

// NewLocal returns an empty slot.
func NewLocal() *Local {
	return &Local{}
}

// Set installs s as the worker's current span.
func (l *Local) Set(s *tracing.Span) {
	if l == nil {
		return
	}
	l.current.Store(s)
}

// Get returns the worker's current span, or nil.
func (l *Local) Get() *tracing.Span {
	if l == nil {
		return nil
	}

	return l.current.Load()
}

// Clear empties the slot, ends all outstanding bindings and returns the span
// that was installed. Exactly one of several concurrent callers gets it.
func (l *Local) Clear() *tracing.Span {
	if l == nil {
		return nil
	}
	l.epoch.Add(1)

	return l.current.Swap(nil)
}

// Pending returns the worker's pending child cell.
func (l *Local) Pending() *Pending {
	if l == nil {
		return nil
	}

	return &l.pending
}

// Bind returns a view of l that stays valid until the next Clear.
func (l *Local) Bind() *Binding {
	if l == nil {
		return nil
	}

	return &Binding{local: l, epoch: l.epoch.Load()}
}

// Binding is one request's view of a worker slot. Once the worker clears the
// slot, Get and Pending return nil.
//
// A nil *Binding behaves as a released one.
type Binding struct {
	local *Local
	epoch uint64
}

// Active reports whether the request the binding was taken for is still
// being served.
func (b *Binding) Active() bool {
	return b != nil && b.local.epoch.Load() == b.epoch
}

// Get returns the current span of the bound request, or nil once released.
func (b *Binding) Get() *tracing.Span {
	if b == nil {
		return nil
	}
	s := b.local.current.Load()
	// checked after the load: a span installed for a later request is only
	// visible once the epoch has moved on
	if !b.Active() {
		return nil
	}

	return s
}

// Pending returns the worker's pending child cell while the binding is
// active, or nil.
func (b *Binding) Pending() *Pending {
	if !b.Active() {
		return nil
	}

	return &b.local.pending
}

type localKey struct{}

// WithLocal returns a context through which code running on the worker can
// reach the request's binding of l. Call it after the request's span is Set.
func WithLocal(ctx context.Context, l *Local) context.Context {
	return context.WithValue(ctx, localKey{}, l.Bind())
}

// LocalFrom returns the worker binding carried by ctx, or nil.
func LocalFrom(ctx context.Context) *Binding {
	b, _ := ctx.Value(localKey{}).(*Binding)
	return b
}
