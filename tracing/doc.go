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

// Package tracing provides the span lifecycle used by the traceprop
// integrations: transactions for inbound requests, child spans for outbound
// calls, and the OpenTelemetry provider that exports them.
//
// # Basic Usage
//
//	tracer := tracing.MustNew(
//	    tracing.WithServiceName("orders"),
//	    tracing.WithServiceVersion("v1.4.0"),
//	    tracing.WithOTLP("localhost:4317", tracing.OTLPInsecure()),
//	)
//	if err := tracer.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
//
// # Transactions and spans
//
// A [Transaction] is the root span of a logical request. It is either
// finished (reported) or discarded (dropped), never both:
//
//	tx := tracer.StartTransaction(ctx, "GET /users/42", tracing.OpHTTPServer, parent)
//	child := tx.StartChild(tracing.OpHTTPClient)
//	child.SetDescription("GET https://billing/invoices")
//	child.SetHTTPStatus(200)
//	child.Finish()
//	tx.SetName("GET /users/{id}")
//	tx.SetHTTPStatus(200)
//	tx.Finish()
//
// Finish is safe to call from several goroutines; only the first call has an
// effect and returns true.
//
// # Providers
//
// Noop (default, spans recorded but not exported), Stdout, OTLP (gRPC) and
// OTLP HTTP are built in. Only one provider may be configured. A custom
// OpenTelemetry provider can be supplied with [WithTracerProvider].
//
// # Sampling
//
// Upstream sampling decisions carried by the sentry-trace header are honored.
// Traces without one, or whose upstream deferred the decision, are sampled at
// the rate given by [WithSampleRate].
//
// # Metrics
//
// With [WithMeterProvider], started, finished, discarded and active span
// counts are recorded through the metrics package.
package tracing
