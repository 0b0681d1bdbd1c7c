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
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/logging"
)

// LineFunc receives stdout lines as they are read, without line terminators.
type LineFunc func(line string)

// RunOptions controls a single Run call. A nil *RunOptions uses defaults.
type RunOptions struct {
	// Timeout bounds the execution. Non-positive means only ctx bounds it.
	Timeout time.Duration
	// Stdin is connected to the process stdin if non-nil.
	Stdin io.Reader
	// StdoutLine, if non-nil, is called for every stdout line. Stdout is
	// still captured in Result.Stdout.
	StdoutLine LineFunc
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env entries ("key=value") are appended to the current environment.
	Env []string
}

// Cmd is a command that can be run repeatedly with extra arguments.
type Cmd interface {
	// Args returns the base argv including the program name.
	Args() []string
	// Run executes the command synchronously and classifies its outcome.
	Run(ctx context.Context, extraArgs []string, opts *RunOptions) *Result
}

// ExecCmd is a Cmd run as a local process.
type ExecCmd struct {
	name     string
	baseArgs []string
}

var _ Cmd = &ExecCmd{}

// CommandExec returns an ExecCmd running name with baseArgs.
func CommandExec(name string, baseArgs ...string) *ExecCmd {
	return &ExecCmd{name: name, baseArgs: baseArgs}
}

// Args returns the base argv including the program name.
func (c *ExecCmd) Args() []string {
	return append([]string{c.name}, c.baseArgs...)
}

// Run starts the process in its own session and waits for it. If the
// timeout or ctx expires first, every process in the session is killed.
func (c *ExecCmd) Run(ctx context.Context, extraArgs []string, opts *RunOptions) *Result {
	if opts == nil {
		opts = &RunOptions{}
	}
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	args := append(append([]string(nil), c.baseArgs...), extraArgs...)
	logging.Debugf(ctx, "Running %s %s", c.name, strings.Join(args, " "))

	cmd := exec.Command(c.name, args...)
	cmd.SysProcAttr = &unix.SysProcAttr{Setsid: true}
	cmd.Stdin = opts.Stdin
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	failed := func(err error) *Result {
		return &Result{Status: StatusFailed, ExitCode: -1, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return failed(errors.Wrap(err, "failed to create stdout pipe"))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return failed(errors.Wrap(err, "failed to create stderr pipe"))
	}
	if err := cmd.Start(); err != nil {
		return failed(errors.Wrapf(err, "failed to start %s", c.name))
	}

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error { return readLines(stdout, &outBuf, opts.StdoutLine) })
	g.Go(func() error {
		_, err := io.Copy(&errBuf, stderr)
		return err
	})

	// The child is a session leader, so its session ID equals its PID.
	sid := cmd.Process.Pid
	exited := make(chan struct{})
	killed := make(chan bool, 1)
	go func() {
		select {
		case <-runCtx.Done():
			killSession(sid, unix.SIGKILL)
			killed <- true
		case <-exited:
			killed <- false
		}
	}()

	readErr := g.Wait()
	waitErr := cmd.Wait()
	close(exited)
	wasKilled := <-killed

	res := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
	}
	switch {
	case wasKilled && errors.Is(ctx.Err(), context.Canceled):
		res.Status = StatusFailed
		res.Err = ctx.Err()
	case wasKilled:
		res.Status = StatusTimeout
		logging.Debugf(ctx, "%s timed out", c.name)
	case waitErr != nil:
		res.Status = StatusFailed
		if _, ok := waitErr.(*exec.ExitError); !ok {
			res.Err = waitErr
		}
	case readErr != nil:
		res.Status = StatusFailed
		res.Err = errors.Wrap(readErr, "failed to read output")
	default:
		res.Status = StatusSuccess
	}
	return res
}

// readLines copies r to buf and passes every complete or trailing line to f.
func readLines(r io.Reader, buf *bytes.Buffer, f LineFunc) error {
	if f == nil {
		_, err := io.Copy(buf, r)
		return err
	}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		buf.WriteString(line)
		if line != "" {
			f(strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
