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

// This file contains end-to-end tests for trace propagation across two
// services, each behind the inbound middleware, talking through the traced
// transport.

//go:build integration

package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"rivaas.dev/traceprop/client"
	"rivaas.dev/traceprop/server"
	"rivaas.dev/traceprop/traceheader"
	"rivaas.dev/traceprop/tracing"
)

const (
	upstreamTrace = "771a43a4192642f0b136d5159a501700"
	upstreamSpan  = "bfad1c3c3e4f4a5b"
)

func spanOp(s sdktrace.ReadOnlySpan) string {
	for _, kv := range s.Attributes() {
		if kv.Key == tracing.AttrOperation {
			return kv.Value.AsString()
		}
	}

	return ""
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value.Emit()
		}
	}

	return ""
}

func byName(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}

	return nil
}

var _ = Describe("Trace propagation", Label("integration", "server"), func() {
	var (
		rec      *tracetest.SpanRecorder
		tp       *sdktrace.TracerProvider
		frontend *httptest.Server
		backend  *httptest.Server
	)

	BeforeEach(func() {
		rec = tracetest.NewSpanRecorder()
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(rec),
			sdktrace.WithSampler(tracing.NewSampler(1.0)),
		)
		tracer := tracing.MustNew(
			tracing.WithServiceName("integration"),
			tracing.WithTracerProvider(tp),
		)

		backendMux := http.NewServeMux()
		backendMux.HandleFunc("GET /profiles/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		backend = httptest.NewServer(server.Middleware(tracer)(backendMux))

		httpClient := client.WrapClient(backend.Client())
		frontendMux := http.NewServeMux()
		frontendMux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
			req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, backend.URL+"/profiles/"+r.PathValue("id"), nil)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			resp.Body.Close()
			w.WriteHeader(resp.StatusCode)
		})
		frontend = httptest.NewServer(server.Middleware(tracer)(frontendMux))

		DeferCleanup(func() {
			frontend.Close()
			backend.Close()
			Expect(tp.Shutdown(context.Background())).To(Succeed())
		})
	})

	get := func(path, header string) int {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, frontend.URL+path, nil)
		Expect(err).NotTo(HaveOccurred())
		if header != "" {
			req.Header.Set(traceheader.HeaderName, header)
		}
		resp, err := frontend.Client().Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		return resp.StatusCode
	}

	Context("with an upstream trace header", func() {
		It("continues the trace through both services", func() {
			Expect(get("/users/42", upstreamTrace+"-"+upstreamSpan+"-1")).To(Equal(http.StatusOK))

			Eventually(func() int { return len(rec.Ended()) }).Should(Equal(3))
			spans := rec.Ended()

			front := byName(spans, "GET /users/{id}")
			back := byName(spans, "GET /profiles/{id}")
			Expect(front).NotTo(BeNil())
			Expect(back).NotTo(BeNil())

			var outbound sdktrace.ReadOnlySpan
			for _, s := range spans {
				if spanOp(s) == tracing.OpHTTPClient {
					outbound = s
				}
			}
			Expect(outbound).NotTo(BeNil())

			for _, s := range spans {
				Expect(s.SpanContext().TraceID().String()).To(Equal(upstreamTrace))
			}
			Expect(front.Parent().SpanID().String()).To(Equal(upstreamSpan))
			Expect(outbound.Parent().SpanID()).To(Equal(front.SpanContext().SpanID()))
			Expect(back.Parent().SpanID()).To(Equal(outbound.SpanContext().SpanID()))
			Expect(spanAttr(front, tracing.AttrStatus)).To(Equal(string(tracing.StatusOK)))
		})
	})

	Context("with a malformed trace header", func() {
		It("starts a new trace and still propagates it", func() {
			Expect(get("/users/42", "bad-format")).To(Equal(http.StatusOK))

			Eventually(func() int { return len(rec.Ended()) }).Should(Equal(3))
			spans := rec.Ended()

			front := byName(spans, "GET /users/{id}")
			Expect(front).NotTo(BeNil())
			Expect(front.Parent().IsValid()).To(BeFalse())
			for _, s := range spans {
				Expect(s.SpanContext().TraceID()).To(Equal(front.SpanContext().TraceID()))
			}
		})
	})

	Context("with an unrouted request", func() {
		It("reports nothing", func() {
			Expect(get("/nothing/here", "")).To(Equal(http.StatusNotFound))
			Consistently(func() int { return len(rec.Ended()) }).Should(BeZero())
		})
	})
})
