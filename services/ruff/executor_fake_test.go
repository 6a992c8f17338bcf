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
	"context"
	"slices"
	"strings"
	"sync"
)

// fakeCall is one recorded invocation.
type fakeCall struct {
	Argv  []string
	Stdin string
}

// fakeExecutor answers ruff invocations without a subprocess.
type fakeExecutor struct {
	mu    sync.Mutex
	calls []fakeCall

	version string
	respond func(argv []string, stdin string) (Output, error)
}

func newFakeExecutor(respond func(argv []string, stdin string) (Output, error)) *fakeExecutor {
	return &fakeExecutor{version: "ruff 0.4.1\n", respond: respond}
}

func (f *fakeExecutor) Execute(_ context.Context, argv []string, stdin []byte) (Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Argv: slices.Clone(argv), Stdin: string(stdin)})
	f.mu.Unlock()

	if slices.Contains(argv, "--version") {
		return Output{Stdout: []byte(f.version)}, nil
	}
	if f.respond == nil {
		return Output{}, nil
	}
	return f.respond(argv, string(stdin))
}

// Calls returns the recorded non-version invocations.
func (f *fakeExecutor) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if !slices.Contains(c.Argv, "--version") {
			out = append(out, c)
		}
	}
	return out
}

// executorFunc adapts a function to Executor, for tests that need to
// control the --version answer too.
type executorFunc func(argv []string, stdin []byte) (Output, error)

func (f executorFunc) Execute(_ context.Context, argv []string, stdin []byte) (Output, error) {
	return f(argv, stdin)
}

func hasArg(argv []string, arg string) bool {
	return slices.Contains(argv, arg)
}

func argWithPrefix(argv []string, prefix string) (string, bool) {
	for _, a := range argv {
		if strings.HasPrefix(a, prefix) {
			return strings.TrimPrefix(a, prefix), true
		}
	}
	return "", false
}

func noLookPath(string) (string, error) {
	return "", errNotOnPath
}

type notOnPathError struct{}

func (notOnPathError) Error() string { return "not on PATH" }

var errNotOnPath error = notOnPathError{}

func newTestRunner(exec Executor) *Runner {
	return NewRunner(
		WithExecutor(exec),
		WithLookPath(func(string) (string, error) { return "/usr/bin/ruff", nil }),
	)
}
