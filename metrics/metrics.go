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

// Package metrics sets up an OpenTelemetry meter provider backed by
// Prometheus, OTLP or stdout, and records span lifecycle counters.
//
// Exporter setup:
//
//	exp, err := metrics.New(metrics.WithPrometheus())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Shutdown(context.Background())
//	mux.Handle("/metrics", exp.Handler())
//
// The meter provider is then handed to the tracer:
//
//	tracer := tracing.MustNew(tracing.WithMeterProvider(exp.MeterProvider()))
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Provider names a metrics backend.
type Provider string

const (
	// PrometheusProvider exposes metrics on a pull endpoint (default).
	PrometheusProvider Provider = "prometheus"
	// OTLPProvider pushes metrics over OTLP/HTTP.
	OTLPProvider Provider = "otlp"
	// StdoutProvider prints metrics periodically, for development.
	StdoutProvider Provider = "stdout"
)

// DefaultExportInterval is the push interval for OTLP and stdout.
const DefaultExportInterval = 30 * time.Second

// Exporter owns a meter provider and the backend behind it.
type Exporter struct {
	provider       Provider
	providerSet    bool
	otlpEndpoint   string
	exportInterval time.Duration
	registerGlobal bool
	logger         *slog.Logger

	meterProvider      *sdkmetric.MeterProvider
	prometheusRegistry *promclient.Registry
	prometheusHandler  http.Handler

	validationErrors []error
	shutdownOnce     sync.Once
	shutdownErr      error
}

// Option configures an [Exporter].
type Option func(*Exporter)

func (e *Exporter) setProvider(p Provider) bool {
	if e.providerSet {
		e.validationErrors = append(e.validationErrors,
			fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q)", e.provider, p))

		return false
	}
	e.provider = p
	e.providerSet = true

	return true
}

// WithPrometheus selects the Prometheus backend.
func WithPrometheus() Option {
	return func(e *Exporter) {
		e.setProvider(PrometheusProvider)
	}
}

// WithOTLP selects the OTLP/HTTP backend. Endpoint format: "http://host:port".
func WithOTLP(endpoint string) Option {
	return func(e *Exporter) {
		if e.setProvider(OTLPProvider) {
			e.otlpEndpoint = endpoint
		}
	}
}

// WithStdout selects the stdout backend.
func WithStdout() Option {
	return func(e *Exporter) {
		e.setProvider(StdoutProvider)
	}
}

// WithExportInterval sets the push interval for OTLP and stdout.
func WithExportInterval(interval time.Duration) Option {
	return func(e *Exporter) {
		e.exportInterval = interval
	}
}

// WithGlobalMeterProvider registers the meter provider with otel.SetMeterProvider.
func WithGlobalMeterProvider() Option {
	return func(e *Exporter) {
		e.registerGlobal = true
	}
}

// WithLogger sets the logger for setup and shutdown messages.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// New builds an exporter. Without a provider option, Prometheus is used.
func New(opts ...Option) (*Exporter, error) {
	e := &Exporter{
		provider:       PrometheusProvider,
		exportInterval: DefaultExportInterval,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("invalid metrics configuration: %w", err)
	}
	if err := e.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return e, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Exporter {
	e, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize metrics: %v", err))
	}

	return e
}

func (e *Exporter) validate() error {
	if len(e.validationErrors) > 0 {
		return errors.Join(e.validationErrors...)
	}
	if e.exportInterval <= 0 {
		return fmt.Errorf("export interval must be positive, got %s", e.exportInterval)
	}
	if e.provider == OTLPProvider && e.otlpEndpoint == "" {
		e.logger.Warn("OTLP endpoint not specified, will use default", "default", "http://localhost:4318")
		e.otlpEndpoint = "http://localhost:4318"
	}

	return nil
}

// Provider returns the configured backend.
func (e *Exporter) Provider() Provider {
	return e.provider
}

// MeterProvider returns the provider to pass to instrumented components.
func (e *Exporter) MeterProvider() metric.MeterProvider {
	return e.meterProvider
}

// Handler returns the Prometheus scrape handler. It serves 404 for push
// backends.
func (e *Exporter) Handler() http.Handler {
	if e.prometheusHandler == nil {
		return http.NotFoundHandler()
	}

	return e.prometheusHandler
}

// Shutdown flushes and stops the meter provider. Safe to call more than once.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.shutdownOnce.Do(func() {
		if err := e.meterProvider.Shutdown(ctx); err != nil {
			e.logger.Error("Error shutting down meter provider", "error", err)
			e.shutdownErr = fmt.Errorf("meter provider shutdown: %w", err)

			return
		}
		e.logger.Debug("Meter provider shut down", "provider", e.provider)
	})

	return e.shutdownErr
}
