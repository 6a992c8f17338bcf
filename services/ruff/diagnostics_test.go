// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ruff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestNewDiagnostic(t *testing.T) {
	fix := &Fix{
		Applicability: ApplicabilitySafe,
		Message:       "Remove unused import",
		Edits:         []Edit{{Location: Location{Row: 1, Column: 1}, EndLocation: Location{Row: 2, Column: 1}}},
	}
	d := NewDiagnostic(Finding{
		Code:        "F401",
		Message:     "`os` imported but unused",
		Location:    Location{Row: 1, Column: 8},
		EndLocation: Location{Row: 1, Column: 10},
		Fix:         fix,
		URL:         "https://docs.astral.sh/ruff/rules/unused-import",
	}, nil)

	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 7},
		End:   protocol.Position{Line: 0, Character: 9},
	}, d.Range)
	assert.Equal(t, "ruff", d.Source)
	assert.Equal(t, "F401", d.Code)
	assert.Equal(t, protocol.DiagnosticSeverityError, d.Severity)
	assert.Equal(t, []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary}, d.Tags)
	require.NotNil(t, d.CodeDescription)
	assert.Equal(t, "https://docs.astral.sh/ruff/rules/unused-import", string(d.CodeDescription.Href))
	assert.Same(t, fix, d.Data)
}

func TestNewDiagnostic_NoFixNoData(t *testing.T) {
	d := NewDiagnostic(Finding{
		Code:        "D212",
		Location:    Location{Row: 3, Column: 1},
		EndLocation: Location{Row: 3, Column: 4},
	}, SeverityOverrides{{Pattern: "D", Level: "I"}})

	assert.Nil(t, d.Data)
	assert.Nil(t, d.Tags)
	assert.Nil(t, d.CodeDescription)
	assert.Equal(t, protocol.DiagnosticSeverityInformation, d.Severity)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"data"`)
}

func TestNewDiagnostic_ClampsZeroLocation(t *testing.T) {
	d := NewDiagnostic(Finding{Code: "E999"}, nil)
	assert.Equal(t, protocol.Position{}, d.Range.Start)
	assert.Equal(t, protocol.DiagnosticSeverityError, d.Severity)
}

func TestDiagnostics_NeverNil(t *testing.T) {
	assert.NotNil(t, Diagnostics(nil, nil))
	assert.Len(t, Diagnostics([]Finding{{Code: "E501"}, {Code: "W291"}}, nil), 2)
}

func TestFixFromData_RoundTrip(t *testing.T) {
	fix := &Fix{
		Applicability: ApplicabilityUnsafe,
		Message:       "Remove assignment",
		Edits:         []Edit{{Content: "", Location: Location{Row: 2, Column: 5}, EndLocation: Location{Row: 2, Column: 11}}},
	}
	d := NewDiagnostic(Finding{Code: "F841", Fix: fix}, nil)

	// Simulate the editor echoing the diagnostic back.
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	var echoed protocol.Diagnostic
	require.NoError(t, json.Unmarshal(raw, &echoed))

	got, ok := fixFromData(echoed.Data)
	require.True(t, ok)
	assert.Equal(t, fix, got)
	assert.True(t, got.IsUnsafe())
	assert.Equal(t, "F841", diagnosticCode(echoed))
}

func TestFixFromData_Invalid(t *testing.T) {
	_, ok := fixFromData(nil)
	assert.False(t, ok)

	_, ok = fixFromData(map[string]any{"unrelated": true})
	assert.False(t, ok)

	_, ok = fixFromData("string")
	assert.False(t, ok)
}
