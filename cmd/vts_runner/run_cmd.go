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

package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"android.googlesource.com/platform/test/vts/internal/adb"
	"android.googlesource.com/platform/test/vts/internal/logging"
	"android.googlesource.com/platform/test/vts/internal/reporting"
	"android.googlesource.com/platform/test/vts/internal/runner"
)

// runCmd implements subcommands.Command to support running a test module.
type runCmd struct {
	deviceFlags
	failForTests bool // exit with 1 if any individual tests fail
	resultsDir   string
	tests        []string // expected test names
}

var _ = subcommands.Command(&runCmd{})

func newRunCmd() *runCmd {
	return &runCmd{}
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run a test module" }
func (*runCmd) Usage() string {
	return `Usage: run [flag]... <test case path> [test config path]

Description:
    Runs the test module at <test case path>, e.g.
    vts/testcases/host/sample/SampleLightTest, with the test runner.
    Exits with 0 if the module was executed, even if some tests failed, and
    with 3 if the device became unreachable. Callers should examine
    streamed_results.jsonl for failing tests. -failfortests can be supplied
    to override this behavior.

Flag:
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	r.deviceFlags.SetFlags(f)
	f.BoolVar(&r.failForTests, "failfortests", false, "exit with 1 if any tests fail")
	f.StringVar(&r.resultsDir, "resultsdir", "", "directory for result files; overrides the config file")
	f.Var(funcValue(func(s string) error {
		r.tests = nil
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				r.tests = append(r.tests, t)
			}
		}
		return nil
	}), "tests", "comma-separated names of the tests the module contains")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 || f.NArg() > 2 {
		logging.Info(ctx, "Expected a test case path and an optional test config path.\n\n"+r.Usage())
		return subcommands.ExitUsageError
	}
	testCasePath := f.Arg(0)
	testConfigPath := f.Arg(1)

	cfg, err := r.loadConfig()
	if err != nil {
		logging.Info(ctx, "Failed to load config: ", err)
		return subcommands.ExitUsageError
	}
	if r.resultsDir != "" {
		cfg.ResultsDir = r.resultsDir
	}
	logging.Debug(ctx, "Config: ", cfg)

	dev, rec := newDevice(cfg)
	if err := rec.Run(ctx, rec.VerifyReady); err != nil {
		logging.Infof(ctx, "Device is not ready: %v", err)
		return exitStatus(err)
	}

	if cfg.ResultsDir != "" {
		if err := os.MkdirAll(cfg.ResultsDir, 0755); err != nil {
			logging.Info(ctx, err)
			return subcommands.ExitFailure
		}
	}
	sw, err := reporting.NewStreamedWriter(filepath.Join(cfg.ResultsDir, reporting.StreamedResultsFilename))
	if err != nil {
		logging.Info(ctx, "Failed to open results file: ", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := sw.Close(); err != nil {
			logging.Info(ctx, "Failed to write results: ", err)
		}
	}()

	var results reporting.Recorder
	checker := reporting.NewChecker(reporting.MultiSink{&results, reporting.NewLoggingSink(ctx), sw})

	rn := runner.New(dev)
	rn.Interpreter = cfg.Interpreter
	rn.ModuleFlag = cfg.ModuleFlag
	rn.Timeout = cfg.RunnerTimeout
	rn.ExtraConfig = cfg.Extra
	rn.ScratchRoot = cfg.ScratchRoot
	rn.ExpectedTests = r.tests

	runErr := rn.Run(ctx, testCasePath, testConfigPath, checker)
	if err := checker.Err(); err != nil {
		logging.Warningf(ctx, "Inconsistent results: %v", err)
	}
	if runErr != nil {
		logging.Infof(ctx, "Failed to run %s: %v", testCasePath, runErr)
		return exitStatus(runErr)
	}

	s := results.Summary()
	logging.Infof(ctx, "%d passed, %d failed, %d run failures", len(s.Passed), len(s.Failed), len(s.RunFailures))
	if r.failForTests && !s.OK() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// exitStatus maps an error to the exit status of the command.
func exitStatus(err error) subcommands.ExitStatus {
	if adb.IsDeviceNotAvailable(err) {
		return exitDeviceLost
	}
	return subcommands.ExitFailure
}
