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
	"testing"
)

func TestDisableLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"no comment", "import os", "import os  # noqa: F401"},
		{"bare noqa", "import os  # noqa", "import os  # noqa: F401"},
		{"existing codes", "import os  # noqa: E501", "import os  # noqa: E501,F401"},
		{"ruff prefix", "import os  # ruff: noqa: E501", "import os  # ruff: noqa: E501,F401"},
		{"flake8 prefix bare", "import os  # flake8: noqa", "import os  # flake8: noqa: F401"},
		{"case insensitive", "import os  # NOQA", "import os  # NOQA: F401"},
		{"other comment", "import os  # keep", "import os  # keep  # noqa: F401"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := disableLine(tt.line, "F401"); got != tt.want {
				t.Errorf("disableLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}
