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
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"rivaas.dev/traceprop/metrics"
	"rivaas.dev/traceprop/traceheader"
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to export spans).
	EventError EventType = iota
	// EventWarning indicates a warning event.
	EventWarning
	// EventInfo indicates an informational event (e.g., tracing initialized).
	EventInfo
	// EventDebug indicates a debug event (e.g., an unparseable trace header).
	EventDebug
)

// Event represents an internal operational event from the tracing packages.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events.
//
// Example custom handler:
//
//	tracing.WithEventHandler(func(e tracing.Event) {
//	    if e.Type == tracing.EventError {
//	        alerts.Notify(e.Message)
//	    }
//	})
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to the provided slog.Logger.
// If logger is nil, returns a no-op handler that discards all events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}

	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

const (
	// DefaultServiceName is the service name used when none is provided.
	DefaultServiceName = "traceprop-service"

	// DefaultServiceVersion is the service version used when none is provided.
	DefaultServiceVersion = "1.0.0"

	// DefaultSampleRate is the default sampling rate (100% of traces).
	DefaultSampleRate = 1.0

	instrumentationName = "rivaas.dev/traceprop"
)

// Provider represents the available tracing providers.
type Provider string

const (
	// NoopProvider records spans in-process without exporting them (default).
	NoopProvider Provider = "noop"
	// StdoutProvider prints finished spans to stdout.
	StdoutProvider Provider = "stdout"
	// OTLPProvider exports over OTLP/gRPC.
	OTLPProvider Provider = "otlp"
	// OTLPHTTPProvider exports over OTLP/HTTP.
	OTLPHTTPProvider Provider = "otlp-http"
)

// Tracer starts transactions and spans and owns the OpenTelemetry provider
// behind them. It is safe for concurrent use.
type Tracer struct {
	enabled        bool
	serviceName    string
	serviceVersion string
	sampleRate     float64
	sendDefaultPII bool

	tracer               trace.Tracer
	tracerProvider       trace.TracerProvider
	sdkProvider          *sdktrace.TracerProvider
	customTracerProvider bool
	registerGlobal       bool
	propagator           propagation.TextMapPropagator

	meterProvider metric.MeterProvider
	recorder      *metrics.Recorder

	eventHandler EventHandler

	provider     Provider
	providerSet  bool
	otlpEndpoint string
	otlpInsecure bool

	validationErrors []error

	startOnce    sync.Once
	startErr     error
	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a Tracer. OTLP providers connect lazily: call [Tracer.Start]
// before serving traffic. Until then spans are not recorded.
//
// Example:
//
//	tracer, err := tracing.New(
//	    tracing.WithServiceName("orders"),
//	    tracing.WithStdout(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
func New(opts ...Option) (*Tracer, error) {
	t := &Tracer{
		enabled:        true,
		serviceName:    DefaultServiceName,
		serviceVersion: DefaultServiceVersion,
		sampleRate:     DefaultSampleRate,
		provider:       NoopProvider,
	}

	for _, opt := range opts {
		opt(t)
	}

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	recorder, err := metrics.NewRecorder(t.meterProvider)
	if err != nil {
		return nil, err
	}
	t.recorder = recorder

	if !t.enabled {
		t.tracer = noop.NewTracerProvider().Tracer(instrumentationName)
		return t, nil
	}

	if err := t.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return t, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Tracer {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize tracing: %v", err))
	}

	return t
}

func (t *Tracer) validate() error {
	if len(t.validationErrors) > 0 {
		return errors.Join(t.validationErrors...)
	}
	if t.serviceName == "" {
		return errors.New("service name cannot be empty")
	}
	if t.serviceVersion == "" {
		return errors.New("service version cannot be empty")
	}
	if t.sampleRate < 0.0 || t.sampleRate > 1.0 {
		return fmt.Errorf("sample rate must be between 0.0 and 1.0, got %f", t.sampleRate)
	}

	switch t.provider {
	case NoopProvider, StdoutProvider, OTLPHTTPProvider:
	case OTLPProvider:
		if t.otlpEndpoint == "" {
			t.emitWarning("OTLP endpoint not specified, will use default", "default", "localhost:4317")
			t.otlpEndpoint = "localhost:4317"
		}
	default:
		return fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}

	return nil
}

// Start connects network exporters. It is a no-op for other providers and
// safe to call more than once.
func (t *Tracer) Start(ctx context.Context) error {
	if !t.enabled {
		return nil
	}
	t.startOnce.Do(func() {
		if t.customTracerProvider || (t.provider != OTLPProvider && t.provider != OTLPHTTPProvider) {
			return
		}
		t.startErr = t.initializeProviderWithContext(ctx)
	})

	return t.startErr
}

// IsEnabled reports whether tracing is active. Integrations pass requests
// through untouched when it is not.
func (t *Tracer) IsEnabled() bool {
	return t.enabled
}

// ServiceName returns the service name.
func (t *Tracer) ServiceName() string {
	return t.serviceName
}

// ServiceVersion returns the service version.
func (t *Tracer) ServiceVersion() string {
	return t.serviceVersion
}

// SendDefaultPII reports whether personally identifying request data
// (cookies, authorization and forwarding headers) may be attached to spans.
func (t *Tracer) SendDefaultPII() bool {
	return t.sendDefaultPII
}

// GetTracer returns the underlying OpenTelemetry tracer.
func (t *Tracer) GetTracer() trace.Tracer {
	return t.tracer
}

// GetPropagator returns the additional propagator configured with
// [WithPropagator], or nil.
func (t *Tracer) GetPropagator() propagation.TextMapPropagator {
	return t.propagator
}

// GetProvider returns the configured provider, or "" when disabled.
func (t *Tracer) GetProvider() Provider {
	if !t.enabled {
		return ""
	}

	return t.provider
}

// StartTransaction starts the root span of a logical request. A nil or
// invalid parent starts a new trace; otherwise the transaction continues the
// upstream trace and inherits its sampling decision, if any.
func (t *Tracer) StartTransaction(ctx context.Context, name, op string, parent *traceheader.Token) *Transaction {
	opts := []trace.SpanStartOption{trace.WithSpanKind(spanKind(op))}
	if parent != nil && parent.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, parent.SpanContext())
	} else {
		opts = append(opts, trace.WithNewRoot())
	}

	ctx, sp := t.tracer.Start(ctx, name, opts...)
	tx := &Transaction{name: name}
	tx.Span = t.newSpan(ctx, sp, op)
	tx.root = tx
	tx.beforeEnd = tx.applyFinal

	return tx
}

// Shutdown flushes pending spans and stops the tracer provider. User-supplied
// providers are left to their owner. Safe to call more than once.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.enabled {
		return nil
	}

	t.shutdownOnce.Do(func() {
		if t.customTracerProvider {
			t.emitDebug("Skipping shutdown of custom tracer provider (managed by user)")
			return
		}
		if t.sdkProvider == nil {
			return
		}
		t.emitDebug("Shutting down tracer provider")
		if err := t.sdkProvider.Shutdown(ctx); err != nil {
			t.emitError("Error shutting down tracer provider", "error", err)
			t.shutdownErr = fmt.Errorf("tracer provider shutdown: %w", err)
		}
	})

	return t.shutdownErr
}

// Emit delivers an operational event to the configured handler.
func (t *Tracer) Emit(typ EventType, msg string, args ...any) {
	if t.eventHandler != nil {
		t.eventHandler(Event{Type: typ, Message: msg, Args: args})
	}
}

func (t *Tracer) emitError(msg string, args ...any) {
	t.Emit(EventError, msg, args...)
}

func (t *Tracer) emitWarning(msg string, args ...any) {
	t.Emit(EventWarning, msg, args...)
}

func (t *Tracer) emitInfo(msg string, args ...any) {
	t.Emit(EventInfo, msg, args...)
}

func (t *Tracer) emitDebug(msg string, args ...any) {
	t.Emit(EventDebug, msg, args...)
}

// TraceID returns the trace id of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		return sc.TraceID().String()
	}

	return ""
}

// SpanID returns the span id of the span in ctx, or "".
func SpanID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		return sc.SpanID().String()
	}

	return ""
}
