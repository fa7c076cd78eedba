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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// Format selects the record layout.
type Format string

const (
	// FormatText is colored human-readable output (default).
	FormatText Format = "text"
	// FormatJSON writes one JSON object per record.
	FormatJSON Format = "json"
	// FormatLogfmt writes key=value pairs.
	FormatLogfmt Format = "logfmt"
)

// Option configures [New].
type Option func(*config)

type config struct {
	output    io.Writer
	level     string
	format    Format
	prefix    string
	timestamp bool
	caller    bool
}

// WithOutput sets the destination. Default: os.Stderr.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// WithLevel sets the minimum level: "debug", "info", "warn" or "error".
func WithLevel(level string) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithFormat sets the record layout.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithPrefix prints prefix before every message.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithTimestamp controls whether records carry a timestamp. Default: true.
func WithTimestamp(enabled bool) Option {
	return func(c *config) {
		c.timestamp = enabled
	}
}

// WithCaller reports the calling file and line.
func WithCaller() Option {
	return func(c *config) {
		c.caller = true
	}
}

// New builds a trace-correlated *slog.Logger.
//
// Errors:
//   - Returns error for an unknown level or format
func New(opts ...Option) (*slog.Logger, error) {
	cfg := &config{
		output:    os.Stderr,
		level:     "info",
		format:    FormatText,
		timestamp: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	level, err := log.ParseLevel(cfg.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.level, err)
	}

	var formatter log.Formatter
	switch cfg.format {
	case FormatText:
		formatter = log.TextFormatter
	case FormatJSON:
		formatter = log.JSONFormatter
	case FormatLogfmt:
		formatter = log.LogfmtFormatter
	default:
		return nil, errors.New("invalid log format: " + string(cfg.format))
	}

	charm := log.NewWithOptions(cfg.output, log.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          cfg.prefix,
		ReportTimestamp: cfg.timestamp,
		ReportCaller:    cfg.caller,
	})

	return slog.New(NewHandler(charm)), nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *slog.Logger {
	logger, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logging: %v", err))
	}

	return logger
}
