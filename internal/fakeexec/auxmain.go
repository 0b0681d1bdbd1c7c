// Copyright (C) 2024 The Android Open Source Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fakeexec lets unit tests run fake child processes.
//
// A fake process is the test binary itself re-executed with environment
// variables selecting an auxiliary main function. Tests use it to stand in
// for the test runner interpreter and for adb.
package fakeexec

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	// auxMainNameEnv selects the auxiliary main function to run.
	auxMainNameEnv = "VTS_AUX_MAIN_NAME"
	// auxMainValueEnv carries the JSON-encoded parameter of the function.
	auxMainValueEnv = "VTS_AUX_MAIN_VALUE"
)

var knownNames = map[string]struct{}{}

// AuxMain is a registered auxiliary main function taking a parameter of
// type T.
type AuxMain[T any] struct {
	name string
}

// NewAuxMain registers f as the auxiliary main function called name.
//
// It must be called from a package-level variable initializer:
//
//	var fakeRunner = fakeexec.NewAuxMain("runner", func(p runnerParams) {
//		// Behave like the runner, then return or os.Exit.
//	})
//
// When the current process was started for name, f runs immediately and
// the process exits with status 0 once f returns. Otherwise NewAuxMain
// returns a handle used to start such processes.
func NewAuxMain[T any](name string, f func(T)) *AuxMain[T] {
	if _, ok := knownNames[name]; ok {
		panic(fmt.Sprintf("fakeexec.NewAuxMain: multiple registrations for %q", name))
	}
	knownNames[name] = struct{}{}

	if os.Getenv(auxMainNameEnv) != name {
		return &AuxMain[T]{name: name}
	}

	var p T
	if err := json.Unmarshal([]byte(os.Getenv(auxMainValueEnv)), &p); err != nil {
		fmt.Fprintf(os.Stderr, "fakeexec: %s: bad parameter: %v\n", name, err)
		os.Exit(125)
	}
	f(p)
	os.Exit(0)
	panic("unreachable")
}

// Params returns what is needed to run the function with parameter p.
func (a *AuxMain[T]) Params(p T) (*AuxMainParams, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return &AuxMainParams{executable: exe, name: a.name, param: string(b)}, nil
}

// AuxMainParams describes one way of running an auxiliary main function.
type AuxMainParams struct {
	executable string
	name       string
	param      string
}

// Executable returns the path of the test binary.
func (a *AuxMainParams) Executable() string {
	return a.executable
}

// Envs returns "key=value" entries to append to exec.Cmd.Env.
func (a *AuxMainParams) Envs() []string {
	return []string{
		fmt.Sprintf("%s=%s", auxMainNameEnv, a.name),
		fmt.Sprintf("%s=%s", auxMainValueEnv, a.param),
	}
}

// SetEnvs sets the variables in the current process so that children
// inheriting the environment run the function. The returned closure
// restores the environment. It panics if another function is already set.
func (a *AuxMainParams) SetEnvs() (restore func()) {
	if v := os.Getenv(auxMainNameEnv); v != "" {
		panic(fmt.Sprintf("fakeexec.AuxMainParams.SetEnvs: %s already set to %q", auxMainNameEnv, v))
	}
	os.Setenv(auxMainNameEnv, a.name)
	os.Setenv(auxMainValueEnv, a.param)
	return func() {
		os.Unsetenv(auxMainNameEnv)
		os.Unsetenv(auxMainValueEnv)
	}
}
