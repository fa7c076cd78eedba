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

// Pending holds the child span of one outbound call between the request and
// its response. Take hands the span to exactly one caller.
//
// A nil *Pending stores nothing and takes nothing.
type Pending struct {
	slot atomic.Pointer[tracing.Span]
}

// Store registers s and returns whatever the cell held before, which the
// caller owns.
func (p *Pending) Store(s *tracing.Span) *tracing.Span {
	if p == nil {
		return nil
	}

	return p.slot.Swap(s)
}

// Take empties the cell and returns its span, or nil if it was already taken.
func (p *Pending) Take() *tracing.Span {
	if p == nil {
		return nil
	}

	return p.slot.Swap(nil)
}

// Peek returns the span without taking it.
func (p *Pending) Peek() *tracing.Span {
	if p == nil {
		return nil
	}

	return p.slot.Load()
}

type pendingKey struct{}

// WithPending returns ctx carrying p, for clients whose request and response
// hooks only share the request context.
func WithPending(ctx context.Context, p *Pending) context.Context {
	return context.WithValue(ctx, pendingKey{}, p)
}

// PendingFrom returns the cell carried by ctx, or nil.
func PendingFrom(ctx context.Context) *Pending {
	p, _ := ctx.Value(pendingKey{}).(*Pending)
	return p
}
