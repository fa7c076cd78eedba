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


package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line: %s", line)
		out = append(out, m)
	}

	return out
}

func TestHandlerCorrelation(t *testing.T) {
	t.Parallel()

	tracer, _ := tracing.TestingTracer(t)
	tx := tracer.StartTransaction(context.Background(), "GET /orders", tracing.OpHTTPServer, nil)
	t.Cleanup(func() { tx.Finish() })
	span := tx.Span

	local := scope.NewLocal()
	local.Set(span)

	otelOnly := trace.ContextWithSpanContext(context.Background(), span.SpanContext())

	tests := []struct {
		name      string
		ctx       context.Context
		wantTrace bool
	}{
		{name: "request context", ctx: scope.WithSpan(context.Background(), span), wantTrace: true},
		{name: "worker slot", ctx: scope.WithLocal(context.Background(), local), wantTrace: true},
		{name: "plain otel context", ctx: otelOnly, wantTrace: true},
		{name: "no span", ctx: context.Background()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil)))
			logger.InfoContext(tt.ctx, "order accepted", "order_id", 7)

			rec := decodeLines(t, &buf)[0]
			assert.Equal(t, "order accepted", rec["msg"])
			assert.InDelta(t, 7, rec["order_id"], 0)
			if !tt.wantTrace {
				assert.NotContains(t, rec, FieldTraceID)
				assert.NotContains(t, rec, FieldSpanID)
				return
			}
			assert.Equal(t, span.SpanContext().TraceID().String(), rec[FieldTraceID])
			assert.Equal(t, span.SpanContext().SpanID().String(), rec[FieldSpanID])
		})
	}
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	tracer, _ := tracing.TestingTracer(t)
	tx := tracer.StartTransaction(context.Background(), "GET /", tracing.OpHTTPServer, nil)
	t.Cleanup(func() { tx.Finish() })
	ctx := scope.WithSpan(context.Background(), tx.Span)

	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil))).With("service", "checkout").WithGroup("req")
	logger.InfoContext(ctx, "done", "status", 200)

	rec := decodeLines(t, &buf)[0]
	assert.Equal(t, "checkout", rec["service"])
	group, ok := rec["req"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 200, group["status"], 0)
	assert.Equal(t, tx.Span.SpanContext().TraceID().String(), group[FieldTraceID])
}

func TestHandlerEnabled(t *testing.T) {
	t.Parallel()

	h := NewHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestNew(t *testing.T) {
	t.Parallel()

	tracer, _ := tracing.TestingTracer(t)
	tx := tracer.StartTransaction(context.Background(), "GET /", tracing.OpHTTPServer, nil)
	t.Cleanup(func() { tx.Finish() })

	var buf bytes.Buffer
	logger, err := New(
		WithOutput(&buf),
		WithLevel("warn"),
		WithFormat(FormatJSON),
		WithTimestamp(false),
	)
	require.NoError(t, err)

	ctx := scope.WithSpan(context.Background(), tx.Span)
	logger.InfoContext(ctx, "dropped")
	logger.WarnContext(ctx, "slow upstream", "ms", 950)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "slow upstream", lines[0]["msg"])
	assert.Equal(t, tx.Span.SpanContext().TraceID().String(), lines[0][FieldTraceID])
	assert.NotContains(t, lines[0], "time")
}

func TestNewFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		want    string
		wantErr string
	}{
		{name: "logfmt", opts: []Option{WithFormat(FormatLogfmt)}, want: "msg=ready"},
		{name: "text with prefix", opts: []Option{WithFormat(FormatText), WithPrefix("traceprop")}, want: "traceprop"},
		{name: "unknown level", opts: []Option{WithLevel("chatty")}, wantErr: "invalid log level"},
		{name: "unknown format", opts: []Option{WithFormat("xml")}, wantErr: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger, err := New(append([]Option{WithOutput(&buf), WithTimestamp(false)}, tt.opts...)...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			logger.Info("ready")
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestMustNewPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustNew(WithLevel("loud")) })
}
