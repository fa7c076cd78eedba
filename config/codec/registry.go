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
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Registry holds the registered encoders and decoders.
type Registry struct {
	mu         sync.RWMutex
	encoders   map[Type]Encoder
	decoders   map[Type]Decoder
	extensions map[string]Type
}

var registry = &Registry{
	encoders:   make(map[Type]Encoder),
	decoders:   make(map[Type]Decoder),
	extensions: make(map[string]Type),
}

// RegisterEncoder registers an encoder for the given type.
func RegisterEncoder(name Type, encoder Encoder) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.encoders[name] = encoder
}

// RegisterDecoder registers a decoder for the given type.
func RegisterDecoder(name Type, decoder Decoder) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.decoders[name] = decoder
}

// RegisterExtension maps a file extension (with or without the leading dot)
// to a codec type.
func RegisterExtension(ext string, name Type) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.extensions[normalizeExt(ext)] = name
}

// GetEncoder retrieves the registered encoder for the given type.
func GetEncoder(name Type) (Encoder, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	encoder, exists := registry.encoders[name]
	if !exists {
		return nil, fmt.Errorf("encoder not found for type: %s", name)
	}

	return encoder, nil
}

// GetDecoder retrieves the registered decoder for the given type.
func GetDecoder(name Type) (Decoder, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	decoder, exists := registry.decoders[name]
	if !exists {
		return nil, fmt.Errorf("decoder not found for type: %s", name)
	}

	return decoder, nil
}

// ForPath returns the decoder registered for the extension of path.
//
// Example:
//
//	dec, err := codec.ForPath("/etc/traceprop/config.yml")
func ForPath(path string) (Decoder, error) {
	ext := normalizeExt(filepath.Ext(path))
	if ext == "" {
		return nil, fmt.Errorf("cannot infer codec: %q has no extension", path)
	}

	registry.mu.RLock()
	name, ok := registry.extensions[ext]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no codec registered for extension %q", ext)
	}

	return GetDecoder(name)
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
