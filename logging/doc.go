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


// Package logging builds the process logger and correlates log records with
// the active span.
//
// [Handler] wraps any [slog.Handler] and adds trace_id and span_id to every
// record whose context carries a span, either through the request context or
// a worker's [scope.Local] slot. [New] returns a ready *slog.Logger backed by
// charmbracelet/log:
//
//	logger, err := logging.New(
//	    logging.WithLevel("debug"),
//	    logging.WithFormat(logging.FormatJSON),
//	)
//	logger.InfoContext(r.Context(), "order accepted", "order_id", id)
package logging
