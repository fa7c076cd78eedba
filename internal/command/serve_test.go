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


package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"rivaas.dev/traceprop/config"
	"rivaas.dev/traceprop/metrics"
	"rivaas.dev/traceprop/tracing"
)

func spanOp(s sdktrace.ReadOnlySpan) string {
	for _, kv := range s.Attributes() {
		if kv.Key == tracing.AttrOperation {
			return kv.Value.AsString()
		}
	}

	return ""
}

func newTestService(t *testing.T, model string) (*service, *httptest.Server, func() []sdktrace.ReadOnlySpan) {
	t.Helper()

	exporter := metrics.MustNew(metrics.WithPrometheus())
	t.Cleanup(func() { _ = exporter.Shutdown(context.Background()) })
	tracer, rec := tracing.TestingTracer(t, tracing.WithMeterProvider(exporter.MeterProvider()))

	cfg := config.Defaults()
	cfg.Server.Workers = 4
	svc, err := newService(serviceOptions{
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   tracer,
		exporter: exporter,
		model:    model,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if svc.pool != nil {
			svc.pool.Close()
		}
	})

	srv := httptest.NewServer(svc.handler)
	t.Cleanup(srv.Close)
	svc.upstream = srv.URL

	return svc, srv, rec.Ended
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestServiceRelay(t *testing.T) {
	t.Parallel()

	for _, model := range []string{ModelContext, ModelPool} {
		t.Run(model, func(t *testing.T) {
			t.Parallel()

			_, srv, ended := newTestService(t, model)

			code, body := get(t, srv.URL+"/relay/ada")
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, "hello, ada\n", body)

			require.Eventually(t, func() bool { return len(ended()) == 3 }, time.Second, 10*time.Millisecond)

			byName := make(map[string]sdktrace.ReadOnlySpan)
			var outbound sdktrace.ReadOnlySpan
			for _, s := range ended() {
				if spanOp(s) == tracing.OpHTTPClient {
					outbound = s
					continue
				}
				byName[s.Name()] = s
			}
			relay, hello := byName["GET /relay/{name}"], byName["GET /hello/{name}"]
			require.NotNil(t, relay)
			require.NotNil(t, hello)
			require.NotNil(t, outbound)

			assert.Equal(t, relay.SpanContext().TraceID(), hello.SpanContext().TraceID())
			assert.Equal(t, relay.SpanContext().SpanID(), outbound.Parent().SpanID())
			assert.Equal(t, outbound.SpanContext().SpanID(), hello.Parent().SpanID())
		})
	}
}

func TestServiceUntracedEndpoints(t *testing.T) {
	t.Parallel()

	_, srv, ended := newTestService(t, ModelContext)

	code, _ := get(t, srv.URL+"/hello/grace")
	require.Equal(t, http.StatusOK, code)

	code, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "traceprop_spans_started")

	code, _ = get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = get(t, srv.URL+"/missing")
	assert.Equal(t, http.StatusNotFound, code)

	spans := ended()
	require.Len(t, spans, 1, "metrics, health and unrouted requests are not reported")
	assert.Equal(t, "GET /hello/{name}", spans[0].Name())
}

func TestServiceFailRoute(t *testing.T) {
	t.Parallel()

	_, srv, ended := newTestService(t, ModelContext)

	code, _ := get(t, srv.URL+"/fail")
	assert.Equal(t, http.StatusInternalServerError, code)

	spans := ended()
	require.Len(t, spans, 1)
	var status string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == tracing.AttrStatus {
			status = kv.Value.AsString()
		}
	}
	assert.Equal(t, string(tracing.StatusInternalError), status)
}

func TestServiceRunShutsDown(t *testing.T) {
	t.Parallel()

	exporter := metrics.MustNew(metrics.WithStdout(), metrics.WithExportInterval(time.Hour))
	tracer, _ := tracing.TestingTracer(t)
	cfg := config.Defaults()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second

	svc, err := newService(serviceOptions{
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   tracer,
		exporter: exporter,
		model:    ModelPool,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestBanner(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printBanner(&buf, bannerInfo{
		Service:         "traceprop",
		Version:         "1.2.3",
		Addr:            ":8080",
		Model:           ModelPool,
		TraceProvider:   "otlp",
		MetricsProvider: "prometheus",
		MetricsPath:     "/metrics",
		TracingEnabled:  true,
	})

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "non-terminal writers get plain text")
	for _, want := range []string{"Service", "1.2.3", "http://0.0.0.0:8080", "Observability", "[otlp]", "http://0.0.0.0:8080/metrics", "[prometheus]"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	printBanner(&buf, bannerInfo{Service: "x", Addr: "localhost:1", MetricsProvider: "stdout"})
	assert.Contains(t, buf.String(), "Disabled")
	assert.Contains(t, buf.String(), "[stdout]")
}

func TestLoopback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "127.0.0.1:8080", loopback(":8080"))
	assert.Equal(t, "localhost:9000", loopback("localhost:9000"))
}
