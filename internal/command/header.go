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
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/traceprop/traceheader"
)

// HeaderCommand groups the trace header tools.
func HeaderCommand() *cli.Command {
	return &cli.Command{
		Name:  "header",
		Usage: "encode and decode " + traceheader.HeaderName + " values",
		Subcommands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "print a header value; missing ids are generated",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "trace-id", Usage: "32 hex characters"},
					&cli.StringFlag{Name: "span-id", Usage: "16 hex characters"},
					&cli.StringFlag{Name: "sampled", Usage: "true, false, or empty to defer"},
				},
				Action: func(c *cli.Context) error {
					tok, err := tokenFromFlags(c.String("trace-id"), c.String("span-id"), c.String("sampled"))
					if err != nil {
						return cli.Exit(err.Error(), 2)
					}
					_, err = fmt.Fprintln(c.App.Writer, traceheader.Encode(tok))

					return err
				},
			},
			{
				Name:      "decode",
				Usage:     "parse a header value and print its fields",
				ArgsUsage: "VALUE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("decode expects exactly one header value", 2)
					}
					tok, err := traceheader.Decode(c.Args().First())
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					printToken(c.App.Writer, tok)

					return nil
				},
			},
		},
	}
}

func tokenFromFlags(traceID, spanID, sampled string) (traceheader.Token, error) {
	var tok traceheader.Token

	if traceID == "" {
		tok.TraceID = trace.TraceID(uuid.New())
	} else {
		id, err := trace.TraceIDFromHex(traceID)
		if err != nil {
			return tok, fmt.Errorf("trace id %q: %w", traceID, err)
		}
		tok.TraceID = id
	}

	if spanID == "" {
		u := uuid.New()
		copy(tok.SpanID[:], u[:8])
	} else {
		id, err := trace.SpanIDFromHex(spanID)
		if err != nil {
			return tok, fmt.Errorf("span id %q: %w", spanID, err)
		}
		tok.SpanID = id
	}

	switch strings.ToLower(sampled) {
	case "":
		tok.Sampled = traceheader.Deferred
	case "true", "1", "yes":
		tok.Sampled = traceheader.Sampled
	case "false", "0", "no":
		tok.Sampled = traceheader.NotSampled
	default:
		return tok, errors.New("sampled must be true, false or empty")
	}

	return tok, nil
}

func printToken(w io.Writer, tok traceheader.Token) {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(10)
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)

	decision := "deferred"
	switch tok.Sampled {
	case traceheader.Sampled:
		decision = "sampled"
	case traceheader.NotSampled:
		decision = "not sampled"
	}

	out := colorWriter(w)
	_, _ = fmt.Fprintln(out, label.Render("trace_id")+value.Render(tok.TraceID.String()))
	_, _ = fmt.Fprintln(out, label.Render("span_id")+value.Render(tok.SpanID.String()))
	_, _ = fmt.Fprintln(out, label.Render("decision")+value.Render(decision))
}
