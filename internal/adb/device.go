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

// Package adb talks to a single Android device through the adb client.
package adb

import (
	"context"
	"strings"
	"time"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/genericexec"
	"android.googlesource.com/platform/test/vts/internal/logging"
	"android.googlesource.com/platform/test/vts/internal/testingutil"
	"android.googlesource.com/platform/test/vts/shutil"
)

const (
	// DefaultCommandTimeout bounds ordinary shell commands.
	DefaultCommandTimeout = 5 * time.Second
	// DefaultBootTimeout bounds the wait for a rebooted device.
	DefaultBootTimeout = 5 * time.Minute

	bootPollInterval = time.Second
)

// Device is one device addressed by its serial number.
type Device struct {
	serial string
	cmd    genericexec.Cmd

	// CommandTimeout is used by Shell when the caller passes zero.
	CommandTimeout time.Duration
	// BootTimeout bounds each phase of Reboot.
	BootTimeout time.Duration
}

// New returns a Device using the adb client at adbPath. An empty serial
// leaves device selection to adb.
func New(adbPath, serial string) *Device {
	args := []string(nil)
	if serial != "" {
		args = []string{"-s", serial}
	}
	return &Device{
		serial:         serial,
		cmd:            genericexec.CommandExec(adbPath, args...),
		CommandTimeout: DefaultCommandTimeout,
		BootTimeout:    DefaultBootTimeout,
	}
}

// Serial returns the serial number the device was created with.
func (d *Device) Serial() string {
	return d.serial
}

// Command runs an adb subcommand such as "get-state" against the device.
// A non-successful result is returned together with a
// *genericexec.CommandError, or a *DeviceNotAvailableError if adb reports
// that the device is gone.
func (d *Device) Command(ctx context.Context, timeout time.Duration, args ...string) (*genericexec.Result, error) {
	if timeout <= 0 {
		timeout = d.CommandTimeout
	}
	res := d.cmd.Run(ctx, args, &genericexec.RunOptions{Timeout: timeout})
	err := genericexec.Check(append(d.cmd.Args(), args...), res)
	if err == nil {
		return res, nil
	}
	if res.Status == genericexec.StatusFailed && looksUnavailable(d.serial, res.Stderr) {
		return res, newDeviceNotAvailable(d.serial, err, "device %s is not available", d.serial)
	}
	return res, err
}

// Shell runs cmd with "adb shell". cmd is passed to the device shell as a
// single string, so it may contain pipes and quoting.
func (d *Device) Shell(ctx context.Context, timeout time.Duration, cmd string) (*genericexec.Result, error) {
	return d.Command(ctx, timeout, "shell", cmd)
}

// Available reports whether adb sees the device in the "device" state.
func (d *Device) Available(ctx context.Context) bool {
	res, err := d.Command(ctx, 0, "get-state")
	return err == nil && strings.TrimSpace(res.Stdout) == "device"
}

// Reboot restarts the device and waits until it finishes booting. Failure to
// get the device back is reported as a *DeviceNotAvailableError.
func (d *Device) Reboot(ctx context.Context) error {
	logging.Infof(ctx, "Rebooting device %s", d.serial)
	if _, err := d.Command(ctx, d.BootTimeout, "reboot"); err != nil {
		if IsDeviceNotAvailable(err) {
			return err
		}
		return errors.Wrap(err, "failed to reboot")
	}
	if _, err := d.Command(ctx, d.BootTimeout, "wait-for-device"); err != nil {
		return newDeviceNotAvailable(d.serial, err, "device %s did not come back after reboot", d.serial)
	}
	err := testingutil.Poll(ctx, func(ctx context.Context) error {
		res, err := d.Shell(ctx, 0, "getprop sys.boot_completed")
		if err != nil {
			if IsDeviceNotAvailable(err) {
				return testingutil.PollBreak(err)
			}
			return err
		}
		if v := strings.TrimSpace(res.Stdout); v != "1" {
			return errors.Errorf("sys.boot_completed is %q", v)
		}
		return nil
	}, &testingutil.PollOptions{Timeout: d.BootTimeout, Interval: bootPollInterval})
	if err != nil {
		return newDeviceNotAvailable(d.serial, err, "device %s did not finish booting", d.serial)
	}
	logging.Infof(ctx, "Device %s booted", d.serial)
	return nil
}

// Log writes msg to the device log with the given tag.
func (d *Device) Log(ctx context.Context, tag, msg string) error {
	_, err := d.Shell(ctx, 0, "log -t "+tag+" "+shutil.Quote(msg))
	return err
}
