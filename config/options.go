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


package config

import (
	"go.opentelemetry.io/otel/propagation"

	"rivaas.dev/traceprop/metrics"
	"rivaas.dev/traceprop/server"
	"rivaas.dev/traceprop/tracing"
)

// TracerOptions converts the configuration into tracer options. Options in
// extra are applied last.
//
// Example:
//
//	tracer, err := tracing.New(cfg.TracerOptions(tracing.WithLogger(logger))...)
func (c *Config) TracerOptions(extra ...tracing.Option) []tracing.Option {
	opts := []tracing.Option{
		tracing.WithServiceName(c.ServiceName),
		tracing.WithEnabled(c.Enabled),
		tracing.WithSendDefaultPII(c.SendDefaultPII),
		tracing.WithSampleRate(c.SampleRate),
	}

	if c.ServiceVersion != "" {
		opts = append(opts, tracing.WithServiceVersion(c.ServiceVersion))
	}

	switch tracing.Provider(c.Exporter.Provider) {
	case tracing.StdoutProvider:
		opts = append(opts, tracing.WithStdout())
	case tracing.OTLPProvider:
		var otlp []tracing.OTLPOption
		if c.Exporter.Insecure {
			otlp = append(otlp, tracing.OTLPInsecure())
		}
		opts = append(opts, tracing.WithOTLP(c.Exporter.Endpoint, otlp...))
	case tracing.OTLPHTTPProvider:
		opts = append(opts, tracing.WithOTLPHTTP(c.Exporter.Endpoint))
	default:
		opts = append(opts, tracing.WithNoop())
	}

	if p := c.propagator(); p != nil {
		opts = append(opts, tracing.WithPropagator(p))
	}

	return append(opts, extra...)
}

func (c *Config) propagator() propagation.TextMapPropagator {
	var props []propagation.TextMapPropagator
	for _, name := range c.Propagators {
		switch name {
		case "tracecontext":
			props = append(props, propagation.TraceContext{})
		case "baggage":
			props = append(props, propagation.Baggage{})
		}
	}

	switch len(props) {
	case 0:
		return nil
	case 1:
		return props[0]
	default:
		return propagation.NewCompositeTextMapPropagator(props...)
	}
}

// MetricsOptions converts the metrics section into exporter options.
func (c *Config) MetricsOptions(extra ...metrics.Option) []metrics.Option {
	var opts []metrics.Option
	switch metrics.Provider(c.Metrics.Provider) {
	case metrics.OTLPProvider:
		opts = append(opts, metrics.WithOTLP(c.Metrics.Endpoint))
	case metrics.StdoutProvider:
		opts = append(opts, metrics.WithStdout())
	default:
		opts = append(opts, metrics.WithPrometheus())
	}
	opts = append(opts, metrics.WithExportInterval(c.Metrics.Interval))

	return append(opts, extra...)
}

// ServerOptions converts the server section into inbound boundary options.
func (c *Config) ServerOptions(extra ...server.Option) []server.Option {
	var opts []server.Option
	if len(c.Server.ExcludePaths) > 0 {
		opts = append(opts, server.WithExcludePaths(c.Server.ExcludePaths...))
	}
	if len(c.Server.ExcludePrefixes) > 0 {
		opts = append(opts, server.WithExcludePrefixes(c.Server.ExcludePrefixes...))
	}

	return append(opts, extra...)
}
