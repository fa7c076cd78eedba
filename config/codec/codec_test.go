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


package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUnregisteredType(t *testing.T) {
	t.Parallel()

	encoder, err := GetEncoder(Type("unknown"))
	require.Error(t, err)
	assert.Nil(t, encoder)
	assert.Contains(t, err.Error(), "encoder not found for type: unknown")

	decoder, err := GetDecoder(Type("unknown"))
	require.Error(t, err)
	assert.Nil(t, decoder)
	assert.Contains(t, err.Error(), "decoder not found for type: unknown")
}

func TestForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		want    Decoder
		wantErr string
	}{
		{name: "yaml", path: "config.yaml", want: YAMLCodec{}},
		{name: "yml upper case", path: "/etc/traceprop/CONFIG.YML", want: YAMLCodec{}},
		{name: "toml", path: "traceprop.toml", want: TOMLCodec{}},
		{name: "json", path: "./conf/traceprop.json", want: JSONCodec{}},
		{name: "no extension", path: "traceprop", wantErr: "has no extension"},
		{name: "unknown extension", path: "traceprop.ini", wantErr: `no codec registered for extension "ini"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dec, err := ForPath(tt.path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, dec)
		})
	}
}

func TestDocumentDecoders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		codec Decoder
		doc   string
	}{
		{
			name:  "yaml",
			codec: YAMLCodec{},
			doc:   "service_name: checkout\nsample_rate: 0.5\nexporter:\n  provider: otlp\n",
		},
		{
			name:  "toml",
			codec: TOMLCodec{},
			doc:   "service_name = \"checkout\"\nsample_rate = 0.5\n\n[exporter]\nprovider = \"otlp\"\n",
		},
		{
			name:  "json",
			codec: JSONCodec{},
			doc:   `{"service_name": "checkout", "sample_rate": 0.5, "exporter": {"provider": "otlp"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var m map[string]any
			require.NoError(t, tt.codec.Decode([]byte(tt.doc), &m))
			assert.Equal(t, "checkout", m["service_name"])
			assert.InDelta(t, 0.5, m["sample_rate"], 1e-9)

			exporter, ok := m["exporter"].(map[string]any)
			require.True(t, ok, "nested tables decode to maps, got %T", m["exporter"])
			assert.Equal(t, "otlp", exporter["provider"])
		})
	}
}

func TestEncoders(t *testing.T) {
	t.Parallel()

	doc := map[string]any{"service_name": "checkout", "server": map[string]any{"addr": "localhost:8080"}}

	tests := []struct {
		name  string
		codec Type
		want  []string
	}{
		{name: "yaml", codec: TypeYAML, want: []string{"service_name: checkout", "addr:", "localhost:8080"}},
		{name: "toml", codec: TypeTOML, want: []string{`service_name = "checkout"`, "[server]"}},
		{name: "json", codec: TypeJSON, want: []string{`"service_name": "checkout"`, `"addr": "localhost:8080"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			enc, err := GetEncoder(tt.codec)
			require.NoError(t, err)
			out, err := enc.Encode(doc)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, string(out), want)
			}
		})
	}
}
