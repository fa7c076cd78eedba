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
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
)

// bannerInfo is what the startup banner shows.
type bannerInfo struct {
	Service         string
	Version         string
	Addr            string
	Model           string
	TraceProvider   string
	MetricsProvider string
	MetricsPath     string
	TracingEnabled  bool
}

// colorWriter downsamples ANSI sequences to what w supports; a writer that
// is not a terminal gets plain text.
func colorWriter(w io.Writer) *colorprofile.Writer {
	return colorprofile.NewWriter(w, os.Environ())
}

func printBanner(w io.Writer, info bannerInfo) {
	out := colorWriter(w)

	gradient := []string{"12", "14", "10", "11"}
	var art strings.Builder
	for _, line := range figure.NewFigure(info.Service, "", false).Slicify() {
		if strings.TrimSpace(line) == "" {
			art.WriteString("\n")
			continue
		}
		for i, char := range line {
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(gradient[i%len(gradient)])).
				Bold(true)
			art.WriteString(style.Render(string(char)))
		}
		art.WriteString("\n")
	}

	categoryStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Width(14).
		PaddingLeft(2)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	addr := info.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "0.0.0.0" + addr
	}
	addr = "http://" + addr

	row := func(label, value string) string {
		return labelStyle.Render(label+":") + "  " + value + "\n"
	}

	var b strings.Builder
	b.WriteString(categoryStyle.Render("Service") + "\n")
	b.WriteString(row("Version", valueStyle.Foreground(lipgloss.Color("14")).Render(info.Version)))
	b.WriteString(row("Address", valueStyle.Foreground(lipgloss.Color("10")).Render(addr)))
	b.WriteString(row("Model", valueStyle.Render(info.Model)))

	b.WriteString("\n" + categoryStyle.Render("Observability") + "\n")
	if info.TracingEnabled {
		b.WriteString(row("Tracing", valueStyle.Foreground(lipgloss.Color("12")).Render("Enabled")+"  "+
			dimStyle.Render(fmt.Sprintf("[%s]", info.TraceProvider))))
	} else {
		b.WriteString(row("Tracing", dimStyle.Render("Disabled")))
	}
	metrics := dimStyle.Render(fmt.Sprintf("[%s]", info.MetricsProvider))
	if info.MetricsPath != "" {
		metrics = valueStyle.Foreground(lipgloss.Color("13")).Render(addr+info.MetricsPath) + "  " + metrics
	}
	b.WriteString(row("Metrics", metrics))

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, art.String())
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, b.String())
	_, _ = fmt.Fprintln(out)
}
