// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders `ruffls check` results for a terminal.
//
// Colors come from a lipgloss renderer bound to the destination writer, so
// output piped to a file or a test buffer carries no escape codes. Machine
// mode prints one tab-separated line per diagnostic for scripts.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.lsp.dev/protocol"
)

// Color palette used for check output.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - codes
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text, positions

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// SeverityIcon picks the icon for a diagnostic severity.
func SeverityIcon(s protocol.DiagnosticSeverity) Icon {
	switch s {
	case protocol.DiagnosticSeverityError:
		return IconError
	case protocol.DiagnosticSeverityWarning:
		return IconWarning
	default:
		return IconBullet
	}
}

// SeverityName is the lower-case name used in machine output.
func SeverityName(s protocol.DiagnosticSeverity) string {
	switch s {
	case protocol.DiagnosticSeverityError:
		return "error"
	case protocol.DiagnosticSeverityWarning:
		return "warning"
	case protocol.DiagnosticSeverityHint:
		return "hint"
	default:
		return "info"
	}
}

type styles struct {
	path    lipgloss.Style
	muted   lipgloss.Style
	code    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	error   lipgloss.Style
	bold    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		path:    r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(ColorSlate),
		code:    r.NewStyle().Foreground(ColorTealPrimary).Bold(true),
		success: r.NewStyle().Foreground(ColorSuccess),
		warning: r.NewStyle().Foreground(ColorWarning),
		error:   r.NewStyle().Foreground(ColorError),
		bold:    r.NewStyle().Bold(true),
	}
}

// Summary counts what a check run found.
type Summary struct {
	Files    int
	Failed   int
	Errors   int
	Warnings int
	Infos    int
}

// Add counts one diagnostic.
func (s *Summary) Add(d protocol.Diagnostic) {
	switch d.Severity {
	case protocol.DiagnosticSeverityError:
		s.Errors++
	case protocol.DiagnosticSeverityWarning:
		s.Warnings++
	default:
		s.Infos++
	}
}

// Clean reports whether nothing was found and every file was checked.
func (s Summary) Clean() bool {
	return s.Failed == 0 && s.Errors+s.Warnings+s.Infos == 0
}

// Printer writes check results.
//
// Thread Safety: Not safe for concurrent use; callers serialize output.
type Printer struct {
	w       io.Writer
	machine bool
	styles  styles
}

// NewPrinter creates a Printer. machine selects tab-separated output.
func NewPrinter(w io.Writer, machine bool) *Printer {
	return &Printer{
		w:       w,
		machine: machine,
		styles:  newStyles(lipgloss.NewRenderer(w)),
	}
}

func (p *Printer) severityStyle(s protocol.DiagnosticSeverity) lipgloss.Style {
	switch s {
	case protocol.DiagnosticSeverityError:
		return p.styles.error
	case protocol.DiagnosticSeverityWarning:
		return p.styles.warning
	default:
		return p.styles.muted
	}
}

// Diagnostic prints one diagnostic with a 1-based line:column position.
func (p *Printer) Diagnostic(path string, d protocol.Diagnostic) {
	pos := fmt.Sprintf("%d:%d", d.Range.Start.Line+1, d.Range.Start.Character+1)
	code, _ := d.Code.(string)

	if p.machine {
		fmt.Fprintf(p.w, "%s:%s\t%s\t%s\t%s\n", path, pos, SeverityName(d.Severity), code, d.Message)
		return
	}

	icon := p.severityStyle(d.Severity).Render(string(SeverityIcon(d.Severity)))
	parts := []string{icon, p.styles.path.Render(path) + p.styles.muted.Render(":"+pos)}
	if code != "" {
		parts = append(parts, p.styles.code.Render(code))
	}
	parts = append(parts, d.Message)
	fmt.Fprintln(p.w, strings.Join(parts, " "))
}

// FileError prints a file that could not be checked.
func (p *Printer) FileError(path string, err error) {
	if p.machine {
		fmt.Fprintf(p.w, "%s\tfailed\t\t%v\n", path, err)
		return
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.styles.error.Render(string(IconError)),
		p.styles.path.Render(path),
		p.styles.muted.Render("("+err.Error()+")"),
	)
}

// Summary prints the totals line.
func (p *Printer) Summary(s Summary) {
	if p.machine {
		fmt.Fprintf(p.w, "SUMMARY: files=%d failed=%d errors=%d warnings=%d info=%d\n",
			s.Files, s.Failed, s.Errors, s.Warnings, s.Infos)
		return
	}
	if s.Clean() {
		fmt.Fprintf(p.w, "\n%s %s\n",
			p.styles.success.Render(string(IconSuccess)),
			fmt.Sprintf("Checked %s, no problems", plural(s.Files, "file")),
		)
		return
	}
	line := fmt.Sprintf("\n%s %s  %s %s  %s %s",
		p.styles.error.Render(fmt.Sprintf("%d", s.Errors)), p.styles.muted.Render("errors"),
		p.styles.warning.Render(fmt.Sprintf("%d", s.Warnings)), p.styles.muted.Render("warnings"),
		p.styles.bold.Render(fmt.Sprintf("%d", s.Infos)), p.styles.muted.Render("info"),
	)
	if s.Failed > 0 {
		line += fmt.Sprintf("  %s %s", p.styles.error.Render(fmt.Sprintf("%d", s.Failed)), p.styles.muted.Render("failed"))
	}
	fmt.Fprintf(p.w, "%s  %s\n", line, p.styles.muted.Render("in "+plural(s.Files, "file")))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
