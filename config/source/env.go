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


package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"rivaas.dev/traceprop/config/codec"
)

// OSEnvVar loads configuration from environment variables that start with
// a prefix. The prefix is stripped and "__" separates nesting levels:
//
//	TRACEPROP_SAMPLE_RATE=0.5          -> sample_rate = "0.5"
//	TRACEPROP_SERVER__ADDR=:9090       -> server.addr = ":9090"
//	TRACEPROP_EXPORTER__INSECURE=true  -> exporter.insecure = "true"
type OSEnvVar struct {
	prefix  string
	skip    map[string]bool
	environ func() []string
	decoder codec.Decoder
}

// NewOSEnvVar creates a source for variables starting with prefix.
func NewOSEnvVar(prefix string) *OSEnvVar {
	return &OSEnvVar{
		prefix:  prefix,
		environ: os.Environ,
		decoder: codec.EnvVarCodec{},
	}
}

// Without skips the named variables, given without the prefix. Use it for
// variables that share the prefix but are not configuration keys.
func (e *OSEnvVar) Without(names ...string) *OSEnvVar {
	if e.skip == nil {
		e.skip = make(map[string]bool, len(names))
	}
	for _, name := range names {
		e.skip[strings.ToUpper(name)] = true
	}

	return e
}

// Load decodes the matching variables. Values stay strings; the config
// package converts them to the target field types.
func (e *OSEnvVar) Load(_ context.Context) (map[string]any, error) {
	env := e.environ()
	valid := make([]string, 0, len(env))
	for _, kv := range env {
		rest, ok := strings.CutPrefix(kv, e.prefix)
		if !ok {
			continue
		}
		if name, _, _ := strings.Cut(rest, "="); e.skip[strings.ToUpper(name)] {
			continue
		}
		valid = append(valid, rest)
	}

	var config map[string]any
	if err := e.decoder.Decode([]byte(strings.Join(valid, "\n")), &config); err != nil {
		return nil, fmt.Errorf("failed to decode environment variables: %w", err)
	}

	return config, nil
}
