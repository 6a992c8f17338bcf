// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.lsp.dev/protocol"
)

func diag(line, col uint32, sev protocol.DiagnosticSeverity, code, msg string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		},
		Severity: sev,
		Code:     code,
		Source:   "ruff",
		Message:  msg,
	}
}

func TestPrinter_Diagnostic(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Diagnostic("a.py", diag(0, 7, protocol.DiagnosticSeverityError, "F401", "`os` imported but unused"))

	want := "✗ a.py:1:8 F401 `os` imported but unused\n"
	if buf.String() != want {
		t.Errorf("Diagnostic() = %q, want %q", buf.String(), want)
	}
}

func TestPrinter_Diagnostic_NoCode(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	d := diag(2, 0, protocol.DiagnosticSeverityInformation, "", "syntax")
	d.Code = nil
	p.Diagnostic("b.py", d)

	if buf.String() != "• b.py:3:1 syntax\n" {
		t.Errorf("Diagnostic() = %q", buf.String())
	}
}

func TestPrinter_Machine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Diagnostic("a.py", diag(4, 0, protocol.DiagnosticSeverityWarning, "E501", "Line too long"))
	p.FileError("c.py", errors.New("ruff not found"))
	p.Summary(Summary{Files: 2, Failed: 1, Warnings: 1})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3: %q", len(lines), buf.String())
	}
	if lines[0] != "a.py:5:1\twarning\tE501\tLine too long" {
		t.Errorf("diagnostic line = %q", lines[0])
	}
	if lines[1] != "c.py\tfailed\t\truff not found" {
		t.Errorf("error line = %q", lines[1])
	}
	if lines[2] != "SUMMARY: files=2 failed=1 errors=0 warnings=1 info=0" {
		t.Errorf("summary line = %q", lines[2])
	}
}

func TestPrinter_SummaryClean(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Summary(Summary{Files: 1})

	if !strings.Contains(buf.String(), "✓ Checked 1 file, no problems") {
		t.Errorf("Summary() = %q", buf.String())
	}
}

func TestPrinter_SummaryCounts(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Summary(Summary{Files: 3, Errors: 2, Infos: 1})

	out := buf.String()
	for _, want := range []string{"2 errors", "0 warnings", "1 info", "in 3 files"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary() = %q, missing %q", out, want)
		}
	}
	if strings.Contains(out, "failed") {
		t.Errorf("Summary() without failures mentions failed: %q", out)
	}
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	s.Add(diag(0, 0, protocol.DiagnosticSeverityError, "F401", ""))
	s.Add(diag(0, 0, protocol.DiagnosticSeverityWarning, "E501", ""))
	s.Add(diag(0, 0, protocol.DiagnosticSeverityHint, "D100", ""))

	if s.Errors != 1 || s.Warnings != 1 || s.Infos != 1 {
		t.Errorf("Summary = %+v", s)
	}
	if s.Clean() {
		t.Error("Clean() should be false with findings")
	}
}

func TestSeverityIconAndName(t *testing.T) {
	tests := []struct {
		sev  protocol.DiagnosticSeverity
		icon Icon
		name string
	}{
		{protocol.DiagnosticSeverityError, IconError, "error"},
		{protocol.DiagnosticSeverityWarning, IconWarning, "warning"},
		{protocol.DiagnosticSeverityInformation, IconBullet, "info"},
		{protocol.DiagnosticSeverityHint, IconBullet, "hint"},
	}
	for _, tt := range tests {
		if got := SeverityIcon(tt.sev); got != tt.icon {
			t.Errorf("SeverityIcon(%v) = %q, want %q", tt.sev, got, tt.icon)
		}
		if got := SeverityName(tt.sev); got != tt.name {
			t.Errorf("SeverityName(%v) = %q, want %q", tt.sev, got, tt.name)
		}
	}
}
