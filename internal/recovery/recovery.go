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

// Package recovery retries device operations, rebooting the device between
// attempts.
package recovery

import (
	"context"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/adb"
	"android.googlesource.com/platform/test/vts/internal/genericexec"
	"android.googlesource.com/platform/test/vts/internal/logging"
)

const (
	// DefaultMaxAttempts is the number of times Run tries an operation.
	DefaultMaxAttempts = 3
	// DefaultSettleInterval is the pause after a reboot before retrying.
	DefaultSettleInterval = 20 * time.Second
	// DefaultStepPause is the pause after readiness steps that change the
	// screen state.
	DefaultStepPause = 2 * time.Second
)

// Device is the subset of *adb.Device needed for recovery.
type Device interface {
	Shell(ctx context.Context, timeout time.Duration, cmd string) (*genericexec.Result, error)
	Reboot(ctx context.Context) error
}

var _ Device = &adb.Device{}

type readinessStep struct {
	cmd   string
	pause bool
}

// readinessSteps bring the device to a state where tests can drive the
// screen. They always run in this order.
var readinessSteps = []readinessStep{
	{"svc power stayon true", true},
	{"input keyevent KEYCODE_WAKEUP", true},
	{"wm dismiss-keyguard", true},
	{"settings put secure immersive_mode_confirmations confirmed", false},
	{"settings put global heads_up_notifications_enabled 0", false},
}

// ReadinessCommands returns the shell commands run by Prepare, in order.
func ReadinessCommands() []string {
	var cmds []string
	for _, s := range readinessSteps {
		cmds = append(cmds, s.cmd)
	}
	return cmds
}

// Recoverer runs operations against Device with bounded retries.
type Recoverer struct {
	Device         Device
	MaxAttempts    int
	SettleInterval time.Duration
	StepPause      time.Duration
	// CommandTimeout bounds each readiness command. Zero leaves the choice
	// to Device.
	CommandTimeout time.Duration
	Clock          clock.Clock
}

// New returns a Recoverer for d with default settings.
func New(d Device) *Recoverer {
	return &Recoverer{
		Device:         d,
		MaxAttempts:    DefaultMaxAttempts,
		SettleInterval: DefaultSettleInterval,
		StepPause:      DefaultStepPause,
		Clock:          clock.NewClock(),
	}
}

func (r *Recoverer) clock() clock.Clock {
	if r.Clock == nil {
		return clock.NewClock()
	}
	return r.Clock
}

// sleep waits for d on the Recoverer's clock or until ctx is done.
func (r *Recoverer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := r.clock().NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Prepare runs the readiness sequence once.
func (r *Recoverer) Prepare(ctx context.Context) error {
	for _, s := range readinessSteps {
		if _, err := r.Device.Shell(ctx, r.CommandTimeout, s.cmd); err != nil {
			return errors.Wrapf(err, "readiness step %q failed", s.cmd)
		}
		if s.pause {
			if err := r.sleep(ctx, r.StepPause); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run prepares the device and calls op until it succeeds or MaxAttempts
// attempts have failed. Between attempts the device is rebooted, prepared
// again and given SettleInterval to settle. A device that does not come back
// from a reboot ends the loop at once.
func (r *Recoverer) Run(ctx context.Context, op func(ctx context.Context) error) error {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if err := r.Prepare(ctx); err != nil {
		return err
	}
	for i := 1; ; i++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		logging.Infof(ctx, "Attempt %d failed: %v", i, err)
		if i >= maxAttempts {
			logging.Infof(ctx, "Giving up after %d retries", maxAttempts)
			return errors.Wrapf(err, "failed after %d attempts", maxAttempts)
		}
		if rerr := r.Device.Reboot(ctx); rerr != nil {
			return errors.Wrap(rerr, "failed to reboot for retry")
		}
		if perr := r.Prepare(ctx); perr != nil {
			return errors.Wrap(perr, "failed to prepare device for retry")
		}
		logging.Infof(ctx, "Waiting for %v after reboot", r.SettleInterval)
		if err := r.sleep(ctx, r.SettleInterval); err != nil {
			return err
		}
		logging.Infof(ctx, "Retry %d", i)
	}
}

// VerifyReady checks that the screen is on and unlocked.
func (r *Recoverer) VerifyReady(ctx context.Context) error {
	res, err := r.Device.Shell(ctx, r.CommandTimeout, "dumpsys window")
	if err != nil {
		return errors.Wrap(err, "failed to inspect window state")
	}
	if strings.Contains(res.Stdout, "screenState=SCREEN_STATE_OFF") {
		return errors.New("screen was off")
	}
	if strings.Contains(res.Stdout, "KeyguardStateMonitor\n        mIsShowing=true") {
		return errors.New("screen was locked")
	}
	return nil
}
