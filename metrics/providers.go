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

package metrics

import (
	"context"
	"fmt"
	"strings"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func (e *Exporter) initializeProvider() error {
	var err error
	switch e.provider {
	case PrometheusProvider:
		err = e.initPrometheusProvider()
	case OTLPProvider:
		err = e.initOTLPProvider()
	case StdoutProvider:
		err = e.initStdoutProvider()
	default:
		err = fmt.Errorf("unsupported metrics provider: %s", e.provider)
	}
	if err != nil {
		return err
	}

	if e.registerGlobal {
		e.logger.Debug("Setting global OpenTelemetry meter provider", "provider", e.provider)
		otel.SetMeterProvider(e.meterProvider)
	}
	e.logger.Info("Metrics initialized", "provider", e.provider)

	return nil
}

func (e *Exporter) initPrometheusProvider() error {
	e.prometheusRegistry = promclient.NewRegistry()

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(e.prometheusRegistry),
	)
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	e.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	e.prometheusHandler = promhttp.HandlerFor(e.prometheusRegistry, promhttp.HandlerOpts{})

	return nil
}

func (e *Exporter) initOTLPProvider() error {
	opts := []otlpmetrichttp.Option{}

	endpoint := e.otlpEndpoint
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
	opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
	if insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	e.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(e.exportInterval)),
	))

	return nil
}

func (e *Exporter) initStdoutProvider() error {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	e.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(e.exportInterval)),
	))

	return nil
}
