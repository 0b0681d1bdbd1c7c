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

package reporting

import (
	"time"

	"android.googlesource.com/platform/test/vts/errors"
)

// Checker is a Sink that validates event ordering before forwarding events
// to an optional inner Sink. Events are forwarded even when invalid; the
// first violation is kept and returned by Err.
type Checker struct {
	inner Sink

	inRun   bool
	started map[TestID]bool // tests started in the current run; true while open
	err     error
}

var _ Sink = &Checker{}

// NewChecker returns a Checker forwarding to inner, which may be nil.
func NewChecker(inner Sink) *Checker {
	return &Checker{inner: inner}
}

func (c *Checker) fail(format string, args ...interface{}) {
	if c.err == nil {
		c.err = errors.Errorf(format, args...)
	}
}

// Err returns the first ordering violation seen, including a run that has
// not ended yet.
func (c *Checker) Err() error {
	if c.err != nil {
		return c.err
	}
	if c.inRun {
		return errors.New("run did not end")
	}
	return nil
}

// InRun reports whether a run has started and not yet ended.
func (c *Checker) InRun() bool {
	return c.inRun
}

func (c *Checker) RunStarted(module string, count int) {
	if c.inRun {
		c.fail("RunStarted(%s) while a run is in progress", module)
	}
	if count < 0 {
		c.fail("RunStarted(%s) with negative count %d", module, count)
	}
	c.inRun = true
	c.started = make(map[TestID]bool)
	if c.inner != nil {
		c.inner.RunStarted(module, count)
	}
}

func (c *Checker) TestStarted(id TestID) {
	if !c.inRun {
		c.fail("TestStarted(%v) outside a run", id)
	} else if _, ok := c.started[id]; ok {
		c.fail("TestStarted(%v) repeated", id)
	} else {
		c.started[id] = true
	}
	if c.inner != nil {
		c.inner.TestStarted(id)
	}
}

func (c *Checker) checkOpen(event string, id TestID) {
	if !c.inRun {
		c.fail("%s(%v) outside a run", event, id)
	} else if !c.started[id] {
		c.fail("%s(%v) for a test that is not in progress", event, id)
	}
}

func (c *Checker) TestFailed(id TestID, msg string) {
	c.checkOpen("TestFailed", id)
	if c.inner != nil {
		c.inner.TestFailed(id, msg)
	}
}

func (c *Checker) TestEnded(id TestID, metrics map[string]string) {
	c.checkOpen("TestEnded", id)
	if c.inRun {
		if _, ok := c.started[id]; ok {
			c.started[id] = false
		}
	}
	if c.inner != nil {
		c.inner.TestEnded(id, metrics)
	}
}

func (c *Checker) RunFailed(msg string) {
	if !c.inRun {
		c.fail("RunFailed(%q) outside a run", msg)
	}
	if c.inner != nil {
		c.inner.RunFailed(msg)
	}
}

func (c *Checker) RunEnded(elapsed time.Duration, metrics map[string]string) {
	if !c.inRun {
		c.fail("RunEnded outside a run")
	}
	if elapsed < 0 {
		c.fail("RunEnded with negative elapsed time %v", elapsed)
	}
	for id, open := range c.started {
		if open {
			c.fail("RunEnded while %v is in progress", id)
			break
		}
	}
	c.inRun = false
	c.started = nil
	if c.inner != nil {
		c.inner.RunEnded(elapsed, metrics)
	}
}
