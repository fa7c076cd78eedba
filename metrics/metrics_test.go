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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewProviders(t *testing.T) {
	t.Parallel()

	t.Run("prometheus is the default", func(t *testing.T) {
		t.Parallel()

		exp, err := New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = exp.Shutdown(context.Background()) })

		assert.Equal(t, PrometheusProvider, exp.Provider())
		assert.NotNil(t, exp.MeterProvider())
	})

	t.Run("stdout", func(t *testing.T) {
		t.Parallel()

		exp, err := New(WithStdout(), WithExportInterval(time.Hour))
		require.NoError(t, err)
		t.Cleanup(func() { _ = exp.Shutdown(context.Background()) })

		assert.Equal(t, StdoutProvider, exp.Provider())

		w := httptest.NewRecorder()
		exp.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("multiple providers rejected", func(t *testing.T) {
		t.Parallel()

		_, err := New(WithPrometheus(), WithStdout())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "multiple providers")
	})

	t.Run("invalid interval rejected", func(t *testing.T) {
		t.Parallel()

		_, err := New(WithExportInterval(0))
		require.Error(t, err)
	})

	t.Run("shutdown is idempotent", func(t *testing.T) {
		t.Parallel()

		exp := MustNew()
		require.NoError(t, exp.Shutdown(context.Background()))
		require.NoError(t, exp.Shutdown(context.Background()))
	})
}

func TestPrometheusHandlerServesLifecycleMetrics(t *testing.T) {
	t.Parallel()

	exp := MustNew(WithPrometheus())
	t.Cleanup(func() { _ = exp.Shutdown(context.Background()) })

	rec, err := NewRecorder(exp.MeterProvider())
	require.NoError(t, err)
	rec.SpanStarted(context.Background(), "http.server")
	rec.SpanFinished(context.Background(), "http.server", "ok")

	w := httptest.NewRecorder()
	exp.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "traceprop_spans_started")
	assert.Contains(t, w.Body.String(), "traceprop_spans_finished")
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	rec, err := NewRecorder(mp)
	require.NoError(t, err)

	ctx := context.Background()
	rec.SpanStarted(ctx, "http.server")
	rec.SpanStarted(ctx, "http.server")
	rec.SpanStarted(ctx, "http.client")
	rec.SpanFinished(ctx, "http.server", "ok")
	rec.TransactionDiscarded(ctx, "http.server")
	rec.SpanFinished(ctx, "http.client", "internal_error")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s", m.Name)
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(3), totals[SpansStarted])
	assert.Equal(t, int64(2), totals[SpansFinished])
	assert.Equal(t, int64(1), totals[TransactionsDiscarded])
	assert.Equal(t, int64(0), totals[SpansActive])
}

func TestNilRecorder(t *testing.T) {
	t.Parallel()

	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.SpanStarted(context.Background(), "x")
		rec.SpanFinished(context.Background(), "x", "ok")
		rec.TransactionDiscarded(context.Background(), "x")
	})

	noopRec, err := NewRecorder(nil)
	require.NoError(t, err)
	assert.NotNil(t, noopRec)
}
