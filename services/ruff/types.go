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
	"strings"
)

// =============================================================================
// FINDINGS
// =============================================================================

// Location is a 1-based position as reported by ruff.
type Location struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Edit is a single text replacement proposed by a ruff fix.
type Edit struct {
	Content     string   `json:"content"`
	Location    Location `json:"location"`
	EndLocation Location `json:"end_location"`
}

// Applicability values reported by ruff for a fix.
const (
	ApplicabilitySafe        = "safe"
	ApplicabilityUnsafe      = "unsafe"
	ApplicabilityDisplayOnly = "display-only"
)

// Fix is the automated fix attached to a finding.
//
// The same structure travels to the editor in the diagnostic's data field
// and comes back in code action requests.
type Fix struct {
	Applicability string `json:"applicability"`
	Edits         []Edit `json:"edits"`
	Message       string `json:"message"`
}

// IsUnsafe reports whether ruff classified the fix as unsafe.
func (f *Fix) IsUnsafe() bool {
	return f != nil && strings.EqualFold(f.Applicability, ApplicabilityUnsafe)
}

// Finding is one issue reported by `ruff check` for a document.
type Finding struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Filename    string   `json:"filename"`
	Location    Location `json:"location"`
	EndLocation Location `json:"end_location"`
	Fix         *Fix     `json:"fix"`
	NoqaRow     int      `json:"noqa_row"`
	URL         string   `json:"url"`
}

// HasFix reports whether the finding carries at least one edit.
func (f Finding) HasFix() bool {
	return f.Fix != nil && len(f.Fix.Edits) > 0
}

// Codes with an "unused" meaning. Editors usually render them faded.
var unnecessaryCodes = map[string]bool{
	"F401": true, // module imported but unused
	"F504": true, // % format unused named arguments
	"F522": true, // .format(...) unused named arguments
	"F523": true, // .format(...) unused positional arguments
	"F841": true, // local variable assigned but never used
}

// Well-known codes with special handling.
const (
	codeSyntaxError     = "E999"
	codeUnsortedImports = "I001"
)

// fixFromData recovers a Fix from a diagnostic's data field.
//
// Data arrives either as the *Fix this package stored or as the generic
// JSON object the client echoed back.
func fixFromData(data any) (*Fix, bool) {
	switch v := data.(type) {
	case nil:
		return nil, false
	case *Fix:
		return v, v != nil
	case Fix:
		return &v, true
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	var fix Fix
	if err := json.Unmarshal(raw, &fix); err != nil {
		return nil, false
	}
	if len(fix.Edits) == 0 && fix.Message == "" {
		return nil, false
	}
	return &fix, true
}
