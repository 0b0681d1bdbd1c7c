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

package adb_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/adb"
	"android.googlesource.com/platform/test/vts/internal/fakeexec"
	"android.googlesource.com/platform/test/vts/internal/genericexec"
	"android.googlesource.com/platform/test/vts/testutil"
)

const fakeSerial = "FAKE123"

type fakeResponse struct {
	Stdout string
	Stderr string
	Code   int
}

type fakeADBParams struct {
	// LogPath receives one line per invocation with the arguments following
	// "-s <serial>".
	LogPath string
	// Responses maps an invocation to the responses returned on its first,
	// second, ... call. The last response repeats. Unlisted invocations
	// succeed silently.
	Responses map[string][]fakeResponse
}

var fakeADB = fakeexec.NewAuxMain("adb", func(p fakeADBParams) {
	args := os.Args[1:]
	if len(args) >= 2 && args[0] == "-s" {
		args = args[2:]
	}
	key := strings.Join(args, " ")

	prev, _ := os.ReadFile(p.LogPath)
	calls := 0
	for _, l := range strings.Split(string(prev), "\n") {
		if l == key {
			calls++
		}
	}
	f, err := os.OpenFile(p.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		os.Exit(125)
	}
	fmt.Fprintln(f, key)
	f.Close()

	rs := p.Responses[key]
	if len(rs) == 0 {
		return
	}
	if calls >= len(rs) {
		calls = len(rs) - 1
	}
	r := rs[calls]
	fmt.Fprint(os.Stdout, r.Stdout)
	fmt.Fprint(os.Stderr, r.Stderr)
	os.Exit(r.Code)
})

// newFakeDevice returns a Device backed by the fake adb and a function
// returning the invocations seen so far.
func newFakeDevice(t *testing.T, responses map[string][]fakeResponse) (*adb.Device, func() []string) {
	t.Helper()
	logPath := filepath.Join(testutil.TempDir(t), "adb.log")
	params, err := fakeADB.Params(fakeADBParams{LogPath: logPath, Responses: responses})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(params.SetEnvs())

	d := adb.New(params.Executable(), fakeSerial)
	d.CommandTimeout = 10 * time.Second
	d.BootTimeout = 10 * time.Second
	calls := func() []string {
		b, err := os.ReadFile(logPath)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			t.Fatal(err)
		}
		return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	}
	return d, calls
}

func TestShell(t *testing.T) {
	d, calls := newFakeDevice(t, map[string][]fakeResponse{
		"shell getprop ro.product.name": {{Stdout: "oriole\n"}},
	})

	res, err := d.Shell(context.Background(), 0, "getprop ro.product.name")
	if err != nil {
		t.Fatal("Shell failed: ", err)
	}
	if res.Stdout != "oriole\n" {
		t.Errorf("Stdout = %q; want %q", res.Stdout, "oriole\n")
	}
	if diff := cmp.Diff(calls(), []string{"shell getprop ro.product.name"}); diff != "" {
		t.Errorf("Invocations mismatch (-got +want):\n%s", diff)
	}
}

func TestShellCommandError(t *testing.T) {
	d, _ := newFakeDevice(t, map[string][]fakeResponse{
		"shell false": {{Stderr: "nope", Code: 1}},
	})

	_, err := d.Shell(context.Background(), 0, "false")
	var cerr *genericexec.CommandError
	if !errors.As(err, &cerr) {
		t.Fatalf("Shell returned %v; want *CommandError", err)
	}
	if cerr.Result.ExitCode != 1 {
		t.Errorf("ExitCode = %d; want 1", cerr.Result.ExitCode)
	}
	if adb.IsDeviceNotAvailable(err) {
		t.Error("Ordinary command failure classified as device unavailability")
	}
}

func TestShellDeviceNotAvailable(t *testing.T) {
	for _, stderr := range []string{
		"error: device '" + fakeSerial + "' not found",
		"error: device offline",
		"error: no devices/emulators found",
	} {
		t.Run(stderr, func(t *testing.T) {
			d, _ := newFakeDevice(t, map[string][]fakeResponse{
				"shell true": {{Stderr: stderr, Code: 1}},
			})
			_, err := d.Shell(context.Background(), 0, "true")
			if !adb.IsDeviceNotAvailable(err) {
				t.Fatalf("Shell returned %v; want DeviceNotAvailableError", err)
			}
			var dna *adb.DeviceNotAvailableError
			errors.As(err, &dna)
			if dna.Serial != fakeSerial {
				t.Errorf("Serial = %q; want %q", dna.Serial, fakeSerial)
			}
		})
	}
}

func TestShellFileNotFoundIsNotFatal(t *testing.T) {
	d, _ := newFakeDevice(t, map[string][]fakeResponse{
		"shell cat /nope": {{Stderr: "cat: /nope: No such file or directory\nremote object '/nope' not found", Code: 1}},
	})
	_, err := d.Shell(context.Background(), 0, "cat /nope")
	if err == nil || adb.IsDeviceNotAvailable(err) {
		t.Errorf("Shell returned %v; want an ordinary command error", err)
	}
}

func TestAvailable(t *testing.T) {
	d, _ := newFakeDevice(t, map[string][]fakeResponse{
		"get-state": {{Stdout: "device\n"}, {Stdout: "unknown\n"}, {Stderr: "error: device offline", Code: 1}},
	})
	ctx := context.Background()
	var got []bool
	for i := 0; i < 3; i++ {
		got = append(got, d.Available(ctx))
	}
	if diff := cmp.Diff(got, []bool{true, false, false}); diff != "" {
		t.Errorf("Available mismatch (-got +want):\n%s", diff)
	}
}

func TestReboot(t *testing.T) {
	d, calls := newFakeDevice(t, map[string][]fakeResponse{
		"shell getprop sys.boot_completed": {{Stdout: "\n"}, {Stdout: "1\n"}},
	})

	if err := d.Reboot(context.Background()); err != nil {
		t.Fatal("Reboot failed: ", err)
	}
	want := []string{
		"reboot",
		"wait-for-device",
		"shell getprop sys.boot_completed",
		"shell getprop sys.boot_completed",
	}
	if diff := cmp.Diff(calls(), want); diff != "" {
		t.Errorf("Invocations mismatch (-got +want):\n%s", diff)
	}
}

func TestRebootDeviceDoesNotReturn(t *testing.T) {
	d, _ := newFakeDevice(t, map[string][]fakeResponse{
		"wait-for-device": {{Stderr: "error: something went wrong", Code: 1}},
	})

	err := d.Reboot(context.Background())
	if !adb.IsDeviceNotAvailable(err) {
		t.Errorf("Reboot returned %v; want DeviceNotAvailableError", err)
	}
}

func TestRebootBootNeverCompletes(t *testing.T) {
	d, _ := newFakeDevice(t, map[string][]fakeResponse{
		"shell getprop sys.boot_completed": {{Stdout: "0\n"}},
	})
	d.BootTimeout = 2 * time.Second

	err := d.Reboot(context.Background())
	if !adb.IsDeviceNotAvailable(err) {
		t.Errorf("Reboot returned %v; want DeviceNotAvailableError", err)
	}
}

func TestLog(t *testing.T) {
	d, calls := newFakeDevice(t, nil)
	if err := d.Log(context.Background(), "VTS", "[Test Module] Foo BEGIN"); err != nil {
		t.Fatal("Log failed: ", err)
	}
	want := []string{"shell log -t VTS '[Test Module] Foo BEGIN'"}
	if diff := cmp.Diff(calls(), want); diff != "" {
		t.Errorf("Invocations mismatch (-got +want):\n%s", diff)
	}
}
