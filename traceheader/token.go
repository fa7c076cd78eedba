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

package traceheader

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// HeaderName is the HTTP header carrying the trace token between services.
const HeaderName = "sentry-trace"

const separator = "-"

// ErrInvalidToken is returned by [Decode] when a header value is malformed.
var ErrInvalidToken = errors.New("traceheader: invalid trace token")

// Decision is the tri-state sampling decision carried by a [Token].
type Decision uint8

const (
	// Deferred leaves the sampling decision to the receiver.
	Deferred Decision = iota
	// Sampled marks the trace as sampled upstream.
	Sampled
	// NotSampled marks the trace as dropped upstream.
	NotSampled
)

// String returns the wire form of the decision ("" for [Deferred]).
func (d Decision) String() string {
	switch d {
	case Sampled:
		return "1"
	case NotSampled:
		return "0"
	default:
		return ""
	}
}

// Token is the serialized form of a span reference sent across service
// boundaries: trace id, span id and an optional sampling decision.
type Token struct {
	TraceID trace.TraceID
	SpanID  trace.SpanID
	Sampled Decision
}

// String is an alias for [Encode].
func (t Token) String() string {
	return Encode(t)
}

// IsValid reports whether both ids are non-zero.
func (t Token) IsValid() bool {
	return t.TraceID.IsValid() && t.SpanID.IsValid()
}

// Encode renders t as "traceid-spanid[-sampled]". The sampled field is
// omitted when the decision is deferred.
func Encode(t Token) string {
	var b strings.Builder
	b.Grow(32 + 1 + 16 + 2)
	b.WriteString(t.TraceID.String())
	b.WriteString(separator)
	b.WriteString(t.SpanID.String())
	if t.Sampled != Deferred {
		b.WriteString(separator)
		b.WriteString(t.Sampled.String())
	}

	return b.String()
}

// Decode parses a header value produced by [Encode]. All failures wrap
// [ErrInvalidToken].
func Decode(value string) (Token, error) {
	parts := strings.Split(strings.TrimSpace(value), separator)
	if len(parts) < 2 || len(parts) > 3 {
		return Token{}, fmt.Errorf("%w: %q has %d fields, want 2 or 3", ErrInvalidToken, value, len(parts))
	}

	traceID, err := trace.TraceIDFromHex(parts[0])
	if err != nil {
		return Token{}, fmt.Errorf("%w: trace id %q: %w", ErrInvalidToken, parts[0], err)
	}

	spanID, err := trace.SpanIDFromHex(parts[1])
	if err != nil {
		return Token{}, fmt.Errorf("%w: span id %q: %w", ErrInvalidToken, parts[1], err)
	}

	tok := Token{TraceID: traceID, SpanID: spanID}
	if len(parts) == 3 {
		switch parts[2] {
		case "1":
			tok.Sampled = Sampled
		case "0":
			tok.Sampled = NotSampled
		default:
			return Token{}, fmt.Errorf("%w: sampled flag %q", ErrInvalidToken, parts[2])
		}
	}

	return tok, nil
}
