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

// Package reporting defines the canonical test lifecycle events and the
// sinks that consume them.
package reporting

import (
	"time"
)

// TimeoutMessage is the failure message reported for a test that timed out.
const TimeoutMessage = "TIMEOUT"

// TestID identifies a test within a run.
type TestID struct {
	Module string
	Test   string
}

func (id TestID) String() string {
	if id.Module == "" {
		return id.Test
	}
	return id.Module + "#" + id.Test
}

// Sink receives test lifecycle events.
//
// For every run, RunStarted comes first and RunEnded last, exactly once.
// Every TestStarted is matched by exactly one TestEnded for the same ID, with
// any TestFailed for that ID in between. RunFailed may appear anywhere
// inside a run.
type Sink interface {
	RunStarted(module string, count int)
	TestStarted(id TestID)
	TestFailed(id TestID, msg string)
	TestEnded(id TestID, metrics map[string]string)
	RunFailed(msg string)
	RunEnded(elapsed time.Duration, metrics map[string]string)
}

// MultiSink forwards every event to each of its sinks in order.
type MultiSink []Sink

var _ Sink = MultiSink(nil)

func (m MultiSink) RunStarted(module string, count int) {
	for _, s := range m {
		s.RunStarted(module, count)
	}
}

func (m MultiSink) TestStarted(id TestID) {
	for _, s := range m {
		s.TestStarted(id)
	}
}

func (m MultiSink) TestFailed(id TestID, msg string) {
	for _, s := range m {
		s.TestFailed(id, msg)
	}
}

func (m MultiSink) TestEnded(id TestID, metrics map[string]string) {
	for _, s := range m {
		s.TestEnded(id, metrics)
	}
}

func (m MultiSink) RunFailed(msg string) {
	for _, s := range m {
		s.RunFailed(msg)
	}
}

func (m MultiSink) RunEnded(elapsed time.Duration, metrics map[string]string) {
	for _, s := range m {
		s.RunEnded(elapsed, metrics)
	}
}
