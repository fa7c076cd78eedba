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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/traceprop/config/codec"
	"rivaas.dev/traceprop/config/source"
)

func yamlSource(doc string) Source {
	return source.NewFileContent([]byte(doc), codec.YAMLCodec{})
}

func mapSource(m map[string]any) Source {
	return SourceFunc(func(context.Context) (map[string]any, error) { return m, nil })
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	assert.Equal(t, "traceprop", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.SendDefaultPII)
	assert.InDelta(t, 1.0, cfg.SampleRate, 1e-9)
	assert.Equal(t, "noop", cfg.Exporter.Provider)
	assert.Equal(t, "prometheus", cfg.Metrics.Provider)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 30*time.Second, cfg.Metrics.Interval)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Server.Workers)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	t.Parallel()

	base := yamlSource(`
service_name: checkout
sample_rate: 0.5
server:
  addr: localhost:9000
  workers: 2
`)
	override := source.NewFileContent([]byte(`{"server": {"workers": 16}, "send_default_pii": true}`), codec.JSONCodec{})
	env := mapSource(map[string]any{"SERVICE_NAME": "checkout-canary"})

	cfg, err := Load(context.Background(), base, override, env)
	require.NoError(t, err)

	assert.Equal(t, "checkout-canary", cfg.ServiceName, "later sources win, keys are case-insensitive")
	assert.InDelta(t, 0.5, cfg.SampleRate, 1e-9)
	assert.True(t, cfg.SendDefaultPII)
	assert.Equal(t, "localhost:9000", cfg.Server.Addr, "nested keys not overridden are kept")
	assert.Equal(t, 16, cfg.Server.Workers)
	assert.Equal(t, "info", cfg.Log.Level, "untouched sections keep their defaults")
}

func TestLoadConvertsStrings(t *testing.T) {
	t.Parallel()

	cfg, err := Load(context.Background(), mapSource(map[string]any{
		"enabled":     "false",
		"sample_rate": "0.125",
		"propagators": "tracecontext,baggage",
		"server": map[string]any{
			"workers":          "0",
			"shutdown_timeout": "1m30s",
			"exclude_paths":    "/healthz,/readyz",
		},
		"metrics": map[string]any{"interval": "5s"},
	}))
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.InDelta(t, 0.125, cfg.SampleRate, 1e-9)
	assert.Equal(t, []string{"tracecontext", "baggage"}, cfg.Propagators)
	assert.Equal(t, 0, cfg.Server.Workers)
	assert.Equal(t, 90*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"/healthz", "/readyz"}, cfg.Server.ExcludePaths)
	assert.Equal(t, 5*time.Second, cfg.Metrics.Interval)
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		doc       string
		wantField string
	}{
		{name: "sample rate above one", doc: "sample_rate: 1.5", wantField: "sample_rate"},
		{name: "otlp without endpoint", doc: "exporter:\n  provider: otlp", wantField: "exporter.endpoint"},
		{name: "otlp-http without endpoint", doc: "exporter:\n  provider: otlp-http", wantField: "exporter.endpoint"},
		{name: "unknown exporter", doc: "exporter:\n  provider: zipkin", wantField: "exporter.provider"},
		{name: "unknown propagator", doc: "propagators: [b3]", wantField: "propagators[0]"},
		{name: "empty service name", doc: `service_name: ""`, wantField: "service_name"},
		{name: "relative exclude path", doc: "server:\n  exclude_paths: [healthz]", wantField: "server.exclude_paths[0]"},
		{name: "log level", doc: "log:\n  level: verbose", wantField: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(context.Background(), yamlSource(tt.doc))
			require.Error(t, err)

			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "validation", cfgErr.Source)
			assert.Equal(t, "validate", cfgErr.Operation)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestLoadReportsEveryInvalidField(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), yamlSource("sample_rate: -1\nlog:\n  format: xml\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation.sample_rate")
	assert.Contains(t, err.Error(), "validation.log.format")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), yamlSource("sample_rat: 0.5"))
	require.Error(t, err)

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "binding", cfgErr.Source)
	assert.Equal(t, "bind", cfgErr.Operation)
	assert.Contains(t, err.Error(), "sample_rat")
}

func TestLoadSourceFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("vault sealed")
	_, err := Load(context.Background(),
		yamlSource("service_name: a"),
		SourceFunc(func(context.Context) (map[string]any, error) { return nil, boom }),
	)
	require.ErrorIs(t, err, boom)

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "source[1]", cfgErr.Source)
	assert.Equal(t, "load", cfgErr.Operation)
}

func TestLoadCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, yamlSource("service_name: a"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadNilSourceResult(t *testing.T) {
	t.Parallel()

	cfg, err := Load(context.Background(), mapSource(nil))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestDefaultReadsFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traceprop.toml")
	require.NoError(t, os.WriteFile(path, []byte("service_name = \"billing\"\n\n[server]\naddr = \":7000\"\n"), 0o600))
	t.Setenv("TRACEPROP_SERVER__ADDR", ":7001")
	t.Setenv("TRACEPROP_SAMPLE_RATE", "0.75")

	cfg, err := Default(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "billing", cfg.ServiceName)
	assert.Equal(t, ":7001", cfg.Server.Addr)
	assert.InDelta(t, 0.75, cfg.SampleRate, 1e-9)
}

func TestDefaultUnknownExtension(t *testing.T) {
	t.Parallel()

	_, err := Default(context.Background(), "traceprop.ini")
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "traceprop.ini", cfgErr.Source)
}

func TestEncodeLoadsBack(t *testing.T) {
	t.Parallel()

	cfg, err := Load(context.Background(), yamlSource(`
service_name: checkout
propagators: [tracecontext]
exporter:
  provider: otlp
  endpoint: collector:4317
  insecure: true
server:
  addr: localhost:7000
  shutdown_timeout: 3s
`))
	require.NoError(t, err)

	for _, typ := range []codec.Type{codec.TypeYAML, codec.TypeTOML, codec.TypeJSON} {
		t.Run(string(typ), func(t *testing.T) {
			t.Parallel()

			out, err := cfg.Encode(typ)
			require.NoError(t, err)
			assert.Contains(t, string(out), "3s")

			dec, err := codec.GetDecoder(typ)
			require.NoError(t, err)
			loaded, err := Load(context.Background(), source.NewFileContent(out, dec))
			require.NoError(t, err)
			assert.Equal(t, cfg.Map(), loaded.Map())
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	base := errors.New("bad value")
	assert.Equal(t, "config error in source[0] during load: bad value", NewError("source[0]", "load", base).Error())
	err := NewFieldError("validation", "server.addr", "validate", base)
	assert.Equal(t, "config error in validation.server.addr during validate: bad value", err.Error())
	assert.ErrorIs(t, err, base)
}
