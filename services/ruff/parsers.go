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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// RUFF OUTPUT PARSER
// =============================================================================

// ParseFindings parses the JSON output of `ruff check`.
//
// Description:
//
//	Ruff writes a JSON array of findings. Line-delimited output (one JSON
//	object per line) is accepted too. Empty output means no findings.
//
// Inputs:
//
//	data - Raw stdout from ruff
//
// Outputs:
//
//	[]Finding - Parsed findings (nil when there are none)
//	error - Wraps ErrParseOutput if the output is not valid JSON
func ParseFindings(data []byte) ([]Finding, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var findings []Finding
		if err := json.Unmarshal(data, &findings); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseOutput, err)
		}
		if len(findings) == 0 {
			return nil, nil
		}
		return findings, nil
	}

	var findings []Finding
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var f Finding
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrParseOutput, len(findings)+1, err)
		}
		findings = append(findings, f)
	}
	return findings, nil
}
