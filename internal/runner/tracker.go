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

package runner

import (
	"time"

	"android.googlesource.com/platform/test/vts/internal/reporting"
)

// runTracker forwards events to a sink but holds back the last RunEnded, so
// that run-level failures found after parsing can still be reported inside
// the run.
type runTracker struct {
	sink reporting.Sink

	started bool
	pending bool // a RunEnded is held back
	elapsed time.Duration
	metrics map[string]string
}

var _ reporting.Sink = &runTracker{}

func (t *runTracker) flush() {
	if t.pending {
		t.sink.RunEnded(t.elapsed, t.metrics)
		t.pending = false
	}
}

func (t *runTracker) RunStarted(module string, count int) {
	t.flush()
	t.started = true
	t.sink.RunStarted(module, count)
}

func (t *runTracker) TestStarted(id reporting.TestID) {
	t.sink.TestStarted(id)
}

func (t *runTracker) TestFailed(id reporting.TestID, msg string) {
	t.sink.TestFailed(id, msg)
}

func (t *runTracker) TestEnded(id reporting.TestID, metrics map[string]string) {
	t.sink.TestEnded(id, metrics)
}

func (t *runTracker) RunFailed(msg string) {
	t.sink.RunFailed(msg)
}

func (t *runTracker) RunEnded(elapsed time.Duration, metrics map[string]string) {
	t.flush()
	t.pending = true
	t.elapsed = elapsed
	t.metrics = metrics
}

// finish closes the last run, reporting failures in it first. A run is
// started for module if none was. elapsed is used when no RunEnded was held
// back.
func (t *runTracker) finish(module string, elapsed time.Duration, failures []string) {
	if !t.started {
		t.RunStarted(module, 0)
	}
	for _, f := range failures {
		t.sink.RunFailed(f)
	}
	if !t.pending {
		t.RunEnded(elapsed, map[string]string{})
	}
	t.flush()
}
