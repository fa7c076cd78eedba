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
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option defines functional options for Tracer configuration.
type Option func(*Tracer)

// WithTracerProvider uses a caller-managed TracerProvider. Provider options
// (WithOTLP, WithStdout, ...) and the sample rate are ignored, and
// [Tracer.Shutdown] leaves the provider running.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(tracing.NewSampler(0.25)))
//	tracer := tracing.MustNew(tracing.WithTracerProvider(tp))
//	defer tp.Shutdown(context.Background())
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracerProvider = provider
		t.customTracerProvider = true
	}
}

// WithGlobalTracerProvider registers the provider with otel.SetTracerProvider.
// Not registered by default so that several tracers can coexist.
func WithGlobalTracerProvider() Option {
	return func(t *Tracer) {
		t.registerGlobal = true
	}
}

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(t *Tracer) {
		t.serviceVersion = version
	}
}

// WithSampleRate sets the rate (0.0 to 1.0) for new traces and for traces
// whose upstream deferred the decision. Values outside the range are clamped.
// Upstream sampled / not-sampled decisions are always honored.
func WithSampleRate(rate float64) Option {
	return func(t *Tracer) {
		t.sampleRate = min(max(rate, 0.0), 1.0)
	}
}

// WithSendDefaultPII allows cookies and the Authorization, Cookie and
// X-Forwarded-For headers to be attached to transactions.
func WithSendDefaultPII(enabled bool) Option {
	return func(t *Tracer) {
		t.sendDefaultPII = enabled
	}
}

// WithEnabled turns tracing on or off. A disabled tracer makes every
// integration a pass-through.
func WithEnabled(enabled bool) Option {
	return func(t *Tracer) {
		t.enabled = enabled
	}
}

// WithPropagator adds a propagator that outbound integrations inject next to
// the sentry-trace header, and that inbound integrations fall back to when
// that header is absent.
//
// Example:
//
//	tracing.WithPropagator(propagation.TraceContext{})
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(t *Tracer) {
		t.propagator = propagator
	}
}

// WithMeterProvider records span lifecycle metrics on provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(t *Tracer) {
		t.meterProvider = provider
	}
}

// WithEventHandler sets a custom handler for internal operational events.
func WithEventHandler(handler EventHandler) Option {
	return func(t *Tracer) {
		t.eventHandler = handler
	}
}

// WithLogger logs internal operational events to logger.
//
// Example:
//
//	tracing.New(tracing.WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}

// OTLPOption configures OTLP provider behavior.
type OTLPOption func(*otlpConfig)

type otlpConfig struct {
	insecure bool
}

// OTLPInsecure disables TLS for OTLP/gRPC. Use for local collectors.
func OTLPInsecure() OTLPOption {
	return func(c *otlpConfig) {
		c.insecure = true
	}
}

func (t *Tracer) setProvider(p Provider) bool {
	if t.providerSet {
		t.validationErrors = append(t.validationErrors,
			fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", t.provider, p))

		return false
	}
	t.provider = p
	t.providerSet = true

	return true
}

// WithOTLP exports over OTLP/gRPC. Endpoint format: "host:port".
//
// Example:
//
//	tracing.MustNew(tracing.WithOTLP("localhost:4317", tracing.OTLPInsecure()))
func WithOTLP(endpoint string, opts ...OTLPOption) Option {
	return func(t *Tracer) {
		if !t.setProvider(OTLPProvider) {
			return
		}
		t.otlpEndpoint = endpoint
		cfg := &otlpConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		t.otlpInsecure = cfg.insecure
	}
}

// WithOTLPHTTP exports over OTLP/HTTP. Endpoint format: "http://host:port".
func WithOTLPHTTP(endpoint string) Option {
	return func(t *Tracer) {
		if t.setProvider(OTLPHTTPProvider) {
			t.otlpEndpoint = endpoint
		}
	}
}

// WithStdout prints finished spans to stdout.
func WithStdout() Option {
	return func(t *Tracer) {
		t.setProvider(StdoutProvider)
	}
}

// WithNoop records spans without exporting them (default).
func WithNoop() Option {
	return func(t *Tracer) {
		t.setProvider(NoopProvider)
	}
}
