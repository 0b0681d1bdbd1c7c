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

package genericexec

import (
	"fmt"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/shutil"
)

// Status classifies how a command finished.
type Status int

const (
	// StatusSuccess means the command exited with status 0.
	StatusSuccess Status = iota
	// StatusFailed means the command exited non-zero, was killed by a
	// signal, or could not be started.
	StatusFailed
	// StatusTimeout means the command was killed after its timeout.
	StatusTimeout
)

var statusNames = map[Status]string{
	StatusSuccess: "SUCCESS",
	StatusFailed:  "FAILED",
	StatusTimeout: "TIMED_OUT",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of one command execution.
type Result struct {
	Status   Status
	ExitCode int // -1 if the process did not exit normally
	Stdout   string
	Stderr   string
	// Err explains StatusFailed results that have no exit status, e.g. the
	// binary could not be started or the context was canceled.
	Err error
}

// String formats the result for logs and error messages.
func (r *Result) String() string {
	if r == nil {
		return "No details of command result."
	}
	return fmt.Sprintf("Exit code: %d\nStdout: %s\nStderr: %s\n", r.ExitCode, r.Stdout, r.Stderr)
}

// CommandError reports a command that did not succeed.
type CommandError struct {
	*errors.E
	Args   []string
	Result *Result
}

// Check returns nil if res succeeded, and a *CommandError describing args
// and res otherwise.
func Check(args []string, res *Result) error {
	if res.Status == StatusSuccess {
		return nil
	}
	msg := fmt.Sprintf("command %v: %s\n%s", res.Status, shutil.Join(args), res)
	return &CommandError{E: errors.Wrap(res.Err, msg), Args: args, Result: res}
}
