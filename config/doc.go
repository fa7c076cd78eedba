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


// Package config loads the configuration of a traceprop process.
//
// Values come from struct defaults, then from each [Source] in order, later
// sources overriding earlier ones. Keys are case-insensitive. The merged
// values are decoded into [Config] and validated before use.
//
// # Sources
//
// Files are YAML, TOML or JSON, picked by extension:
//
//	service_name: checkout
//	sample_rate: 0.25
//	exporter:
//	  provider: otlp
//	  endpoint: collector:4317
//	  insecure: true
//
// Environment variables use the TRACEPROP_ prefix and "__" between levels:
//
//	TRACEPROP_SAMPLE_RATE=0.25
//	TRACEPROP_EXPORTER__ENDPOINT=collector:4317
//	TRACEPROP_SERVER__EXCLUDE_PATHS=/healthz,/readyz
//
// # Usage
//
//	cfg, err := config.Default(ctx, "traceprop.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tracer, err := tracing.New(cfg.TracerOptions()...)
//
// Unknown keys are rejected so that misspelled settings surface at startup.
package config
