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

// Package runner runs an external test runner for one test module and
// reports its results.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"

	"android.googlesource.com/platform/test/vts/ctxutil"
	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/adb"
	"android.googlesource.com/platform/test/vts/internal/genericexec"
	"android.googlesource.com/platform/test/vts/internal/logging"
	"android.googlesource.com/platform/test/vts/internal/reporting"
	"android.googlesource.com/platform/test/vts/internal/resultparser"
)

const (
	// DefaultInterpreter runs the test runner module.
	DefaultInterpreter = "python"
	// DefaultModuleFlag makes the interpreter run a module by name.
	DefaultModuleFlag = "-m"
	// DefaultTimeout bounds one runner invocation.
	DefaultTimeout = 60 * time.Minute

	// statusLogTag is the device log tag for module status lines.
	statusLogTag = "VTS"
	// cleanupTime is reserved from the context for work after the runner
	// exits.
	cleanupTime = 30 * time.Second
	// stderrTailLines is how many stderr lines are quoted in failures.
	stderrTailLines = 5
)

// Device is the device the tests run against.
type Device interface {
	// Available reports whether the device can still be reached.
	Available(ctx context.Context) bool
	// Log writes a line to the device log.
	Log(ctx context.Context, tag, msg string) error
}

var _ Device = &adb.Device{}

// Runner runs test modules with an external test runner.
type Runner struct {
	// Interpreter and ModuleFlag start the runner, e.g. "python" and "-m".
	Interpreter string
	ModuleFlag  string
	// Timeout bounds one invocation.
	Timeout time.Duration
	// ExtraConfig fields are added to every descriptor.
	ExtraConfig map[string]interface{}
	// ScratchRoot is where scratch directories are made. Empty means the
	// default temporary directory.
	ScratchRoot string
	// Env entries are added to the runner's environment.
	Env []string
	// ExpectedTests names tests the module is known to contain. They are
	// reported even if the runner log never mentions them.
	ExpectedTests []string
	// Device is optional. Without it, device loss cannot be detected.
	Device Device
	// Clock measures elapsed time not derived from runner output.
	Clock clock.Clock
	// NewCmd creates the command running the runner. It defaults to
	// genericexec.CommandExec.
	NewCmd func(name string, args ...string) genericexec.Cmd
}

// New returns a Runner with default settings.
func New(d Device) *Runner {
	return &Runner{
		Interpreter: DefaultInterpreter,
		ModuleFlag:  DefaultModuleFlag,
		Timeout:     DefaultTimeout,
		Device:      d,
		Clock:       clock.NewClock(),
	}
}

func (r *Runner) clock() clock.Clock {
	if r.Clock == nil {
		return clock.NewClock()
	}
	return r.Clock
}

// Prepare allocates the scratch directory, writes the descriptor and builds
// the command for the test case at testCasePath. testConfigPath may be empty
// or name a missing file. The caller must call Finalize on the result.
func (r *Runner) Prepare(testCasePath, testConfigPath string) (inv *Invocation, retErr error) {
	if testCasePath == "" {
		return nil, errors.New("empty test case path")
	}
	dir, err := os.MkdirTemp(r.ScratchRoot, "vts_runner.")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scratch directory")
	}
	inv = &Invocation{
		Module:         moduleName(testCasePath),
		ScratchDir:     dir,
		LogDir:         filepath.Join(dir, logDirName),
		DescriptorPath: filepath.Join(dir, moduleName(testCasePath)+".config.json"),
		ExpectedTests:  append([]string(nil), r.ExpectedTests...),
	}
	defer func() {
		if retErr != nil {
			inv.Finalize()
		}
	}()

	if err := os.Mkdir(inv.LogDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}
	desc, err := buildDescriptor(testConfigPath, r.ExtraConfig, inv.LogDir, testCasePath)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode descriptor")
	}
	if err := os.WriteFile(inv.DescriptorPath, b, 0644); err != nil {
		return nil, errors.Wrap(err, "failed to write descriptor")
	}

	interp, flag := r.Interpreter, r.ModuleFlag
	if interp == "" {
		interp = DefaultInterpreter
	}
	if flag == "" {
		flag = DefaultModuleFlag
	}
	inv.Command = []string{interp, flag, dottedPath(testCasePath), inv.DescriptorPath}
	return inv, nil
}

// Run runs the test case at testCasePath and reports its results to sink.
// Runner failures are reported to sink, and the returned error is nil for
// them. A *adb.DeviceNotAvailableError means the device is gone and no
// further modules should run. The scratch directory is always deleted.
func (r *Runner) Run(ctx context.Context, testCasePath, testConfigPath string, sink reporting.Sink) error {
	inv, err := r.Prepare(testCasePath, testConfigPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := inv.Finalize(); err != nil {
			logging.Warningf(ctx, "Failed to delete %s: %v", inv.ScratchDir, err)
		}
	}()

	if err := r.logStatus(ctx, inv, "BEGIN"); err != nil {
		return err
	}
	if err := r.Execute(ctx, inv, sink); err != nil {
		return err
	}
	return r.logStatus(ctx, inv, "END")
}

// logStatus writes a module status line to the device log. Only device loss
// is an error.
func (r *Runner) logStatus(ctx context.Context, inv *Invocation, status string) error {
	if r.Device == nil {
		return nil
	}
	err := r.Device.Log(ctx, statusLogTag, fmt.Sprintf("[Test Module] %s %s", inv.Module, status))
	if adb.IsDeviceNotAvailable(err) {
		return err
	}
	if err != nil {
		logging.Warningf(ctx, "Failed to log module status: %v", err)
	}
	return nil
}

// Execute runs the command of inv and reports results to sink. Every run it
// reports is ended, even when it returns an error. Errors are returned for
// device loss and for a malformed summary document.
func (r *Runner) Execute(ctx context.Context, inv *Invocation, sink reporting.Sink) error {
	clk := r.clock()
	start := clk.Now()
	tracker := &runTracker{sink: sink}
	lines := resultparser.NewLineParser(tracker, inv.Module, inv.ExpectedTests)

	newCmd := r.NewCmd
	if newCmd == nil {
		newCmd = func(name string, args ...string) genericexec.Cmd {
			return genericexec.CommandExec(name, args...)
		}
	}
	cmd := newCmd(inv.Command[0], inv.Command[1:]...)

	runCtx, cancel := ctxutil.Shorten(ctx, cleanupTime)
	logging.Infof(ctx, "Running %s", strings.Join(inv.Command, " "))
	res := cmd.Run(runCtx, nil, &genericexec.RunOptions{
		Timeout:    r.Timeout,
		StdoutLine: lines.ProcessLine,
		Env:        r.Env,
	})
	cancel()

	var failures []string
	var retErr error
	if res.Status != genericexec.StatusSuccess {
		logging.Infof(ctx, "Runner finished with %v\n%s", res.Status, res)
		failures = append(failures, failureMessage(res))
		if r.Device != nil && !r.Device.Available(ctx) {
			dna := &adb.DeviceNotAvailableError{
				E: errors.Wrapf(genericexec.Check(inv.Command, res), "device lost while running %s", inv.Module),
			}
			retErr = dna
		}
	}

	if _, err := os.Stat(inv.SummaryPath()); err == nil {
		parseStart := clk.Now()
		doc, err := resultparser.ReadSummary(inv.SummaryPath())
		if err != nil {
			failures = append(failures, err.Error())
			if retErr == nil {
				retErr = err
			}
		} else {
			resultparser.ParseSummary(doc, tracker, inv.Module, clk.Since(parseStart))
		}
	} else {
		lines.Done()
	}

	tracker.finish(inv.Module, clk.Since(start), failures)
	return retErr
}

// failureMessage describes a failed runner execution for RunFailed.
func failureMessage(res *genericexec.Result) string {
	msg := res.Status.String()
	if res.Status == genericexec.StatusFailed && res.ExitCode >= 0 {
		msg = fmt.Sprintf("%s (exit code %d)", msg, res.ExitCode)
	}
	if res.Err != nil {
		msg += ": " + res.Err.Error()
	}
	if tail := lastLines(res.Stderr, stderrTailLines); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// lastLines returns the last n non-empty lines of s.
func lastLines(s string, n int) string {
	var out []string
	ls := strings.Split(s, "\n")
	for i := len(ls) - 1; i >= 0 && len(out) < n; i-- {
		if l := strings.TrimSpace(ls[i]); l != "" {
			out = append([]string{l}, out...)
		}
	}
	return strings.Join(out, "\n")
}
