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
	"regexp"
)

// noqaPattern matches an existing suppression comment such as
// "# noqa", "# noqa: E501,F401" or "# ruff: noqa: E501".
var noqaPattern = regexp.MustCompile(`(?i:# (?:(?:ruff|flake8): )?(?P<noqa>noqa))(?::\s?(?P<codes>([A-Z]+[0-9]+(?:[,\s]+)?)+))?`)

// disableLine returns line with code added to its noqa comment.
//
// An existing code list is extended, a bare "# noqa" gets the code, and a
// line without a comment gets a new one. line must not contain its line
// terminator.
func disableLine(line, code string) string {
	m := noqaPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return line + "  # noqa: " + code
	}

	codes := noqaPattern.SubexpIndex("codes")
	if m[2*codes] >= 0 {
		return line + "," + code
	}
	return line + ": " + code
}
