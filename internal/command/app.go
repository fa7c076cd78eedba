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


// Package command implements the traceprop command line: a demo service with
// inbound and outbound tracing, trace header tooling and configuration
// inspection.
package command

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"rivaas.dev/traceprop/config"
	"rivaas.dev/traceprop/logging"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "traceprop",
		Usage:   "sentry-trace propagation toolkit",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ServeCommand(),
			HeaderCommand(),
			ConfigCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "configuration file (.yaml, .toml or .json)",
			EnvVars: []string{config.EnvConfigFile},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "override log.level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "override log.format: text, json, logfmt",
		},
	}
}

// loadConfig loads the configuration named by --config plus the
// environment, then applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Default(c.Context, c.String("config"))
	if err != nil {
		return nil, err
	}

	if level := c.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := c.String("log-format"); format != "" {
		cfg.Log.Format = format
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return logging.New(
		logging.WithOutput(w),
		logging.WithLevel(cfg.Log.Level),
		logging.WithFormat(logging.Format(cfg.Log.Format)),
		logging.WithPrefix(cfg.ServiceName),
	)
}
