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
	"io"
	"strings"

	"github.com/google/subcommands"

	"android.googlesource.com/platform/test/vts/internal/logging"
)

// shellCmd implements subcommands.Command to run a device shell command,
// rebooting and retrying if it fails.
type shellCmd struct {
	deviceFlags
	stdout io.Writer
}

var _ = subcommands.Command(&shellCmd{})

func newShellCmd(stdout io.Writer) *shellCmd {
	return &shellCmd{stdout: stdout}
}

func (*shellCmd) Name() string     { return "shell" }
func (*shellCmd) Synopsis() string { return "run a device shell command with retries" }
func (*shellCmd) Usage() string {
	return `Usage: shell [flag]... <command>...

Description:
    Prepares the device and runs <command> in the device shell. On failure,
    the device is rebooted and the command retried up to max_attempts times.
    The output of the successful attempt is printed.

Flag:
`
}

func (s *shellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		logging.Info(ctx, "Missing command.\n\n"+s.Usage())
		return subcommands.ExitUsageError
	}
	cmd := strings.Join(f.Args(), " ")

	cfg, err := s.loadConfig()
	if err != nil {
		logging.Info(ctx, "Failed to load config: ", err)
		return subcommands.ExitUsageError
	}

	dev, rec := newDevice(cfg)
	var out string
	if err := rec.Run(ctx, func(ctx context.Context) error {
		res, err := dev.Shell(ctx, cfg.CommandTimeout, cmd)
		if err != nil {
			return err
		}
		out = res.Stdout
		return nil
	}); err != nil {
		logging.Infof(ctx, "Command failed: %v", err)
		return exitStatus(err)
	}
	io.WriteString(s.stdout, out)
	return subcommands.ExitSuccess
}
