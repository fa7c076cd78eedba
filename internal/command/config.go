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


package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"rivaas.dev/traceprop/config/codec"
)

// ConfigCommand prints or checks the effective configuration.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect the effective configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the merged configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"o"},
						Usage:   "yaml, toml or json",
						Value:   string(codec.TypeYAML),
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					out, err := cfg.Encode(codec.Type(c.String("format")))
					if err != nil {
						return cli.Exit(err.Error(), 2)
					}
					_, err = c.App.Writer.Write(out)

					return err
				},
			},
			{
				Name:  "validate",
				Usage: "exit non-zero if the configuration is invalid",
				Action: func(c *cli.Context) error {
					if _, err := loadConfig(c); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					_, err := fmt.Fprintln(c.App.Writer, "configuration is valid")

					return err
				},
			},
		},
	}
}
