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

// Package traceheader encodes and decodes the sentry-trace header used to
// continue a trace across service boundaries.
//
// The wire format is
//
//	<32 hex trace id>-<16 hex span id>[-<1|0>]
//
// where the optional third field is the upstream sampling decision. A missing
// field means the decision is deferred to the receiver.
//
// Basic usage:
//
//	tok, err := traceheader.Decode(r.Header.Get(traceheader.HeaderName))
//	if errors.Is(err, traceheader.ErrInvalidToken) {
//	    // start a fresh trace
//	}
//	req.Header.Set(traceheader.HeaderName, traceheader.Encode(tok))
//
// [Propagator] exposes the same format as an OpenTelemetry TextMapPropagator.
package traceheader
