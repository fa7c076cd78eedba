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


// Package source implements configuration sources for the config package.
//
//   - [File] loads a YAML, TOML or JSON document from disk or memory
//   - [OSEnvVar] loads prefixed environment variables, nesting on "__"
//
// Example:
//
//	file, err := source.NewFileAuto("traceprop.yaml")
//	env := source.NewOSEnvVar("TRACEPROP_")
//	cfg, err := config.Load(ctx, file, env)
package source
