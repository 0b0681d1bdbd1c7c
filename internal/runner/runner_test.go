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

package runner_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/adb"
	"android.googlesource.com/platform/test/vts/internal/fakeexec"
	"android.googlesource.com/platform/test/vts/internal/reporting"
	"android.googlesource.com/platform/test/vts/internal/resultparser"
	"android.googlesource.com/platform/test/vts/internal/runner"
	"android.googlesource.com/platform/test/vts/testutil"
)

const (
	testCasePath = "vts/testcases/host/sample/SampleLightTest"
	module       = "SampleLightTest"
)

type fakeRunnerParams struct {
	// RecordPath receives the argv and descriptor seen by the fake.
	RecordPath string
	Stdout     []string
	Stderr     string
	ExitCode   int
	// Summary, if non-empty, is written as the summary document.
	Summary string
	Sleep   time.Duration
}

type record struct {
	Args       []string
	Descriptor map[string]interface{}
	LogDirSeen bool
}

var fakeRunner = fakeexec.NewAuxMain("runner", func(p fakeRunnerParams) {
	rec := record{Args: os.Args[1:]}
	descPath := os.Args[len(os.Args)-1]
	b, err := os.ReadFile(descPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(125)
	}
	if err := json.Unmarshal(b, &rec.Descriptor); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(125)
	}
	logDir, _ := rec.Descriptor["log_path"].(string)
	if fi, err := os.Stat(logDir); err == nil && fi.IsDir() {
		rec.LogDirSeen = true
	}
	if b, err := json.Marshal(rec); err == nil {
		os.WriteFile(p.RecordPath, b, 0644)
	}

	if p.Summary != "" {
		os.WriteFile(filepath.Join(logDir, resultparser.SummaryFilename), []byte(p.Summary), 0644)
	}
	for _, l := range p.Stdout {
		fmt.Println(l)
	}
	fmt.Fprint(os.Stderr, p.Stderr)
	time.Sleep(p.Sleep)
	os.Exit(p.ExitCode)
})

type fakeDevice struct {
	unavailable bool
	logs        []string
	logErr      error
}

func (d *fakeDevice) Available(ctx context.Context) bool {
	return !d.unavailable
}

func (d *fakeDevice) Log(ctx context.Context, tag, msg string) error {
	d.logs = append(d.logs, tag+": "+msg)
	return d.logErr
}

type env struct {
	runner      *runner.Runner
	dev         *fakeDevice
	scratchRoot string
	recordPath  string
}

func newEnv(t *testing.T, p fakeRunnerParams) *env {
	t.Helper()
	scratchRoot := testutil.TempDir(t)
	p.RecordPath = filepath.Join(testutil.TempDir(t), "record.json")
	params, err := fakeRunner.Params(p)
	if err != nil {
		t.Fatal(err)
	}
	dev := &fakeDevice{}
	r := runner.New(dev)
	r.Interpreter = params.Executable()
	r.Env = params.Envs()
	r.ScratchRoot = scratchRoot
	r.Timeout = time.Minute
	r.Clock = fakeclock.NewFakeClock(time.Unix(0, 0))
	return &env{runner: r, dev: dev, scratchRoot: scratchRoot, recordPath: p.RecordPath}
}

// run runs the module, checks event ordering and scratch cleanup, and
// returns the events and the error from Run.
func (e *env) run(t *testing.T) ([]reporting.Event, error) {
	t.Helper()
	var rec reporting.Recorder
	chk := reporting.NewChecker(&rec)
	err := e.runner.Run(context.Background(), testCasePath, "", chk)
	if cerr := chk.Err(); cerr != nil {
		t.Error("Bad event order: ", cerr)
	}
	ents, rerr := os.ReadDir(e.scratchRoot)
	if rerr != nil {
		t.Fatal(rerr)
	}
	if len(ents) != 0 {
		t.Errorf("Scratch directory not deleted: %v", ents)
	}
	return rec.Events(), err
}

func (e *env) record(t *testing.T) *record {
	t.Helper()
	b, err := os.ReadFile(e.recordPath)
	if err != nil {
		t.Fatal("Runner did not run: ", err)
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		t.Fatal(err)
	}
	return &rec
}

func eventStrings(events []reporting.Event) []string {
	var s []string
	for _, e := range events {
		s = append(s, e.String())
	}
	return s
}

func TestRunSummary(t *testing.T) {
	e := newEnv(t, fakeRunnerParams{
		Summary: `{"SampleLightTest": [
			{"name": "t1", "passed": true},
			{"name": "t2", "passed": false, "failureMessage": "unit test"}
		]}`,
		Stdout: []string{"I 01-01 12:00:00.000 [Test Case] ignored PASS"},
	})

	events, err := e.run(t)
	if err != nil {
		t.Fatal("Run failed: ", err)
	}
	want := []string{
		"RunStarted(SampleLightTest, 2)",
		"TestStarted(SampleLightTest#t1)",
		"TestEnded(SampleLightTest#t1)",
		"TestStarted(SampleLightTest#t2)",
		`TestFailed(SampleLightTest#t2, "unit test")`,
		"TestEnded(SampleLightTest#t2)",
		"RunEnded(0s)",
	}
	if diff := cmp.Diff(eventStrings(events), want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}

	rec := e.record(t)
	if len(rec.Args) != 3 || rec.Args[0] != "-m" || rec.Args[1] != "vts.testcases.host.sample.SampleLightTest" ||
		!strings.HasSuffix(rec.Args[2], ".json") {
		t.Errorf("Runner args = %q; want [-m vts.testcases.host.sample.SampleLightTest <descriptor>.json]", rec.Args)
	}
	if !rec.LogDirSeen {
		t.Error("Log directory did not exist while the runner ran")
	}
	if got := rec.Descriptor["test_case_path"]; got != testCasePath {
		t.Errorf("test_case_path = %v; want %v", got, testCasePath)
	}

	wantLogs := []string{
		"VTS: [Test Module] SampleLightTest BEGIN",
		"VTS: [Test Module] SampleLightTest END",
	}
	if diff := cmp.Diff(e.dev.logs, wantLogs); diff != "" {
		t.Errorf("Device logs mismatch (-got +want):\n%s", diff)
	}
}

func TestRunLines(t *testing.T) {
	e := newEnv(t, fakeRunnerParams{
		Stdout: []string{
			"I 01-01 12:00:00.000 [Test Case] t1",
			"I 01-01 12:00:00.500 [Test Case] t1 PASS",
			"I 01-01 12:00:00.600 [Test Case] t2",
			"I 01-01 12:00:01.500 [Test Case] t2 TIMEOUT",
		},
	})

	events, err := e.run(t)
	if err != nil {
		t.Fatal("Run failed: ", err)
	}
	want := []string{
		"RunStarted(SampleLightTest, 2)",
		"TestStarted(SampleLightTest#t1)",
		"TestStarted(SampleLightTest#t2)",
		"TestEnded(SampleLightTest#t1)",
		`TestFailed(SampleLightTest#t2, "TIMEOUT")`,
		"TestEnded(SampleLightTest#t2)",
		"RunEnded(1.5s)",
	}
	if diff := cmp.Diff(eventStrings(events), want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
}

func TestRunLinesExpectedTests(t *testing.T) {
	e := newEnv(t, fakeRunnerParams{
		Stdout: []string{
			"I 01-01 12:00:00.000 [Test Case] t1",
			"I 01-01 12:00:00.500 [Test Case] t1 PASS",
		},
	})
	e.runner.ExpectedTests = []string{"t1", "t2"}

	events, err := e.run(t)
	if err != nil {
		t.Fatal("Run failed: ", err)
	}
	want := []string{
		"RunStarted(SampleLightTest, 2)",
		"TestStarted(SampleLightTest#t1)",
		"TestStarted(SampleLightTest#t2)",
		"TestEnded(SampleLightTest#t1)",
		fmt.Sprintf("TestFailed(SampleLightTest#t2, %q)", resultparser.NoResultMessage),
		"TestEnded(SampleLightTest#t2)",
		"RunEnded(500ms)",
	}
	if diff := cmp.Diff(eventStrings(events), want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	e := newEnv(t, fakeRunnerParams{
		Stdout:   []string{"I 01-01 12:00:00.000 [Test Case] t1"},
		Stderr:   "Traceback (most recent call last):\nImportError: boom\n",
		ExitCode: 3,
	})

	events, err := e.run(t)
	if err != nil {
		t.Fatal("Run returned an error for an ordinary failure: ", err)
	}
	want := []string{
		"RunStarted(SampleLightTest, 1)",
		"TestStarted(SampleLightTest#t1)",
		`TestFailed(SampleLightTest#t1, "test did not report a result")`,
		"TestEnded(SampleLightTest#t1)",
		`RunFailed("FAILED (exit code 3): Traceback (most recent call last):\nImportError: boom")`,
		"RunEnded(0s)",
	}
	if diff := cmp.Diff(eventStrings(events), want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
}

func TestRunTimeout(t *testing.T) {
	e := newEnv(t, fakeRunnerParams{Sleep: time.Minute})
	e.runner.Timeout = 500 * time.Millisecond

	events, err := e.run(t)
	if err != nil {
		t.Fatal("Run returned an error for a timeout: ", err)
	}
	got := eventStrings(events)
	if len(got) != 3 || got[0] != "RunStarted(, 0)" || !strings.HasPrefix(got[1], `RunFailed("TIMED_OUT`) {
		t.Errorf("Events = %q; want an empty run failed with TIMED_OUT", got)
	}
}

func TestRunDeviceLost(t *testing.T) {
	e := newEnv(t, fakeRunnerParams{
		Stdout:   []string{"I 01-01 12:00:00.000 [Test Case] t1 PASS"},
		ExitCode: 1,
	})
	e.dev.unavailable = true

	events, err := e.run(t)
	if !adb.IsDeviceNotAvailable(err) {
		t.Fatalf("Run returned %v; want DeviceNotAvailableError", err)
	}
	if !strings.Contains(err.Error(), "device lost") {
		t.Errorf("Run returned %q; want it to mention the device loss", err)
	}
	got := eventStrings(events)
	if n := len(got); n < 2 || got[n-1] != "RunEnded(0s)" || !strings.HasPrefix(got[n-2], `RunFailed("FAILED (exit code 1)`) {
		t.Errorf("Events = %q; want the run to end with the runner failure", got)
	}
	for _, ev := range got {
		if strings.Contains(ev, "device lost") {
			t.Errorf("Event %q reports the device loss; want it only in the returned error", ev)
		}
	}
	// END is not logged to a lost device.
	if diff := cmp.Diff(e.dev.logs, []string{"VTS: [Test Module] SampleLightTest BEGIN"}); diff != "" {
		t.Errorf("Device logs mismatch (-got +want):\n%s", diff)
	}
}

func TestRunDeviceLostBeforeStart(t *testing.T) {
	e := newEnv(t, fakeRunnerParams{})
	e.dev.logErr = &adb.DeviceNotAvailableError{E: errors.New("gone")}

	events, err := e.run(t)
	if !adb.IsDeviceNotAvailable(err) {
		t.Fatalf("Run returned %v; want DeviceNotAvailableError", err)
	}
	if len(events) != 0 {
		t.Errorf("Run reported %v; want no events", eventStrings(events))
	}
	if testutil.Exists(t, e.recordPath) {
		t.Error("Runner was started for a lost device")
	}
}

func TestRunStatusLogFailureIgnored(t *testing.T) {
	e := newEnv(t, fakeRunnerParams{})
	e.dev.logErr = errors.New("log failed")

	if _, err := e.run(t); err != nil {
		t.Error("Run failed: ", err)
	}
}

func TestRunBadSummary(t *testing.T) {
	e := newEnv(t, fakeRunnerParams{Summary: `{"SampleLightTest": 42}`})

	events, err := e.run(t)
	var derr *resultparser.DocumentError
	if !errors.As(err, &derr) {
		t.Fatalf("Run returned %v; want *DocumentError", err)
	}
	got := eventStrings(events)
	if len(got) != 3 || got[0] != "RunStarted(SampleLightTest, 0)" || !strings.HasPrefix(got[1], "RunFailed(") {
		t.Errorf("Events = %q; want an empty failed run", got)
	}
}

func TestPrepare(t *testing.T) {
	dir := testutil.TempDir(t)
	configPath := filepath.Join(dir, "SampleLightTest.config")
	if err := testutil.WriteFiles(dir, map[string]string{
		"SampleLightTest.config": `{"test_bed": "sample", "log_path": "/overridden", "abi": "x86"}`,
	}); err != nil {
		t.Fatal(err)
	}

	r := runner.New(nil)
	r.ScratchRoot = dir
	r.ExtraConfig = map[string]interface{}{"abi": "arm64"}
	inv, err := r.Prepare("vts/testcases/host/sample/SampleLightTest.py", configPath)
	if err != nil {
		t.Fatal("Prepare failed: ", err)
	}
	defer inv.Finalize()

	if inv.Module != module {
		t.Errorf("Module = %q; want %q", inv.Module, module)
	}
	wantCmd := []string{"python", "-m", "vts.testcases.host.sample.SampleLightTest", inv.DescriptorPath}
	if diff := cmp.Diff(inv.Command, wantCmd); diff != "" {
		t.Errorf("Command mismatch (-got +want):\n%s", diff)
	}
	if !strings.HasPrefix(inv.DescriptorPath, inv.ScratchDir+string(filepath.Separator)) {
		t.Errorf("Descriptor %s is outside scratch directory %s", inv.DescriptorPath, inv.ScratchDir)
	}

	b, err := os.ReadFile(inv.DescriptorPath)
	if err != nil {
		t.Fatal(err)
	}
	var desc map[string]interface{}
	if err := json.Unmarshal(b, &desc); err != nil {
		t.Fatal(err)
	}
	wantDesc := map[string]interface{}{
		"test_bed":       "sample",
		"abi":            "arm64",
		"log_path":       inv.LogDir,
		"test_case_path": "vts/testcases/host/sample/SampleLightTest.py",
	}
	if diff := cmp.Diff(desc, wantDesc); diff != "" {
		t.Errorf("Descriptor mismatch (-got +want):\n%s", diff)
	}
	if got, want := inv.SummaryPath(), filepath.Join(inv.LogDir, resultparser.SummaryFilename); got != want {
		t.Errorf("SummaryPath() = %s; want %s", got, want)
	}

	if err := inv.Finalize(); err != nil {
		t.Fatal("Finalize failed: ", err)
	}
	if testutil.Exists(t, inv.ScratchDir) {
		t.Error("Scratch directory exists after Finalize")
	}
	if err := inv.Finalize(); err != nil {
		t.Error("Second Finalize failed: ", err)
	}
}

func TestPrepareMissingConfig(t *testing.T) {
	r := runner.New(nil)
	r.ScratchRoot = testutil.TempDir(t)
	inv, err := r.Prepare(testCasePath, filepath.Join(r.ScratchRoot, "missing.config"))
	if err != nil {
		t.Fatal("Prepare failed: ", err)
	}
	inv.Finalize()
}

func TestPrepareBadConfig(t *testing.T) {
	dir := testutil.TempDir(t)
	if err := testutil.WriteFiles(dir, map[string]string{"bad.config": "{"}); err != nil {
		t.Fatal(err)
	}
	scratch := testutil.TempDir(t)
	r := runner.New(nil)
	r.ScratchRoot = scratch
	if _, err := r.Prepare(testCasePath, filepath.Join(dir, "bad.config")); err == nil {
		t.Error("Prepare succeeded for a malformed test config")
	}
	if ents, _ := os.ReadDir(scratch); len(ents) != 0 {
		t.Errorf("Scratch directory left behind after failed Prepare: %v", ents)
	}
}
