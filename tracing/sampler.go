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
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/traceprop/traceheader"
)

// NewSampler returns the sampler used by built-in providers: upstream
// decisions are honored, and new or deferred traces are sampled at rate.
// Once a deferred trace is decided, the deferred marker is dropped so that
// downstream services receive the decision.
func NewSampler(rate float64) sdktrace.Sampler {
	ratio := sdktrace.TraceIDRatioBased(rate)

	return deferredSampler{
		ratio:  ratio,
		parent: sdktrace.ParentBased(ratio),
	}
}

type deferredSampler struct {
	ratio  sdktrace.Sampler
	parent sdktrace.Sampler
}

func (s deferredSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	psc := trace.SpanContextFromContext(p.ParentContext)
	if !psc.IsValid() || !traceheader.IsDeferred(psc) {
		return s.parent.ShouldSample(p)
	}

	res := s.ratio.ShouldSample(p)
	res.Tracestate = traceheader.ResolveDeferred(psc.TraceState())

	return res
}

func (s deferredSampler) Description() string {
	return fmt.Sprintf("DeferredAware{%s}", s.parent.Description())
}
