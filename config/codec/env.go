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
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// TypeEnvVar is the environment variable codec type.
const TypeEnvVar Type = "env_var"

// EnvSeparator separates nesting levels in variable names. A single
// underscore stays part of the key, so SERVER__SHUTDOWN_TIMEOUT becomes
// server.shutdown_timeout.
const EnvSeparator = "__"

func init() {
	RegisterEncoder(TypeEnvVar, EnvVarCodec{})
	RegisterDecoder(TypeEnvVar, EnvVarCodec{})
}

// EnvVarCodec decodes KEY=value lines into a nested map.
type EnvVarCodec struct{}

// Encode is not supported; environment variables are read-only.
func (EnvVarCodec) Encode(_ any) ([]byte, error) {
	return nil, errors.New("encoding to environment variables is not supported")
}

// Decode decodes newline separated KEY=value pairs into *map[string]any.
// Keys are lowercased. Lines without "=" are skipped.
func (EnvVarCodec) Decode(data []byte, v any) error {
	ptr, ok := v.(*map[string]any)
	if !ok {
		return fmt.Errorf("EnvVarCodec.Decode: expected *map[string]any, got %T", v)
	}

	conf := make(map[string]any)
	for line := range bytes.SplitSeq(data, []byte("\n")) {
		key, value, found := strings.Cut(string(line), "=")
		if !found {
			continue
		}

		parts := splitKey(key)
		if len(parts) == 0 {
			continue
		}

		current := conf
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]any)
			if !ok {
				// a scalar set earlier is replaced by the nested section
				next = make(map[string]any)
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = strings.TrimSpace(value)
	}

	*ptr = conf

	return nil
}

func splitKey(key string) []string {
	raw := strings.Split(strings.ToLower(strings.TrimSpace(key)), EnvSeparator)
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.Trim(part, "_")
		if part != "" {
			parts = append(parts, part)
		}
	}

	return parts
}
