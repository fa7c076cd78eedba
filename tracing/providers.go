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
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace/noop"
)

// initializeProvider sets up providers that need no network connection.
// OTLP providers get a non-recording tracer until Start is called.
func (t *Tracer) initializeProvider() error {
	if t.customTracerProvider {
		t.emitDebug("Using custom user-provided tracer provider")
		t.tracer = t.tracerProvider.Tracer(instrumentationName)
		t.registerProvider()

		return nil
	}

	switch t.provider {
	case NoopProvider:
		t.installSDKProvider()
		return nil
	case StdoutProvider:
		return t.initStdoutProvider()
	case OTLPProvider, OTLPHTTPProvider:
		t.tracer = noop.NewTracerProvider().Tracer(instrumentationName)
		return nil
	default:
		return fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}
}

// initializeProviderWithContext sets up the OTLP providers.
func (t *Tracer) initializeProviderWithContext(ctx context.Context) error {
	switch t.provider {
	case OTLPProvider:
		return t.initOTLPProvider(ctx)
	case OTLPHTTPProvider:
		return t.initOTLPHTTPProvider(ctx)
	default:
		return fmt.Errorf("provider %s does not require context initialization", t.provider)
	}
}

// installSDKProvider builds the SDK provider shared by all built-in
// providers. A nil exporter records spans without exporting them.
func (t *Tracer) installSDKProvider(opts ...sdktrace.TracerProviderOption) {
	opts = append(opts,
		sdktrace.WithResource(createResource(t.serviceName, t.serviceVersion)),
		sdktrace.WithSampler(NewSampler(t.sampleRate)),
	)
	tp := sdktrace.NewTracerProvider(opts...)

	t.sdkProvider = tp
	t.tracerProvider = tp
	t.tracer = tp.Tracer(instrumentationName)
	t.registerProvider()
}

func (t *Tracer) registerProvider() {
	if t.registerGlobal {
		t.emitDebug("Setting global OpenTelemetry tracer provider", "provider", t.provider)
		otel.SetTracerProvider(t.tracerProvider)
	} else {
		t.emitDebug("Skipping global tracer provider registration", "provider", t.provider)
	}
}

func (t *Tracer) initStdoutProvider() error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	t.installSDKProvider(sdktrace.WithBatcher(exporter))
	t.emitInfo("Tracing initialized", "provider", StdoutProvider, "service", t.serviceName)

	return nil
}

func (t *Tracer) initOTLPProvider(ctx context.Context) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.otlpEndpoint)}
	if t.otlpInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}

	t.installSDKProvider(sdktrace.WithBatcher(exporter))
	t.emitInfo("Tracing initialized", "provider", OTLPProvider, "endpoint", t.otlpEndpoint, "service", t.serviceName)

	return nil
}

func (t *Tracer) initOTLPHTTPProvider(ctx context.Context) error {
	opts := []otlptracehttp.Option{}

	if t.otlpEndpoint != "" {
		endpoint := t.otlpEndpoint
		insecure := false
		if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
			endpoint = trimmed
			insecure = true
		} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
			endpoint = trimmed
		}
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}

		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}

	t.installSDKProvider(sdktrace.WithBatcher(exporter))
	t.emitInfo("Tracing initialized", "provider", OTLPHTTPProvider, "endpoint", t.otlpEndpoint, "service", t.serviceName)

	return nil
}

// createResource creates an OpenTelemetry resource with service information.
func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}
