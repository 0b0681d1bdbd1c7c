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
	"fmt"
	"time"
)

// EventType identifies the kind of an Event.
type EventType int

const (
	EventRunStarted EventType = iota
	EventTestStarted
	EventTestFailed
	EventTestEnded
	EventRunFailed
	EventRunEnded
)

var eventTypeNames = map[EventType]string{
	EventRunStarted:  "RunStarted",
	EventTestStarted: "TestStarted",
	EventTestFailed:  "TestFailed",
	EventTestEnded:   "TestEnded",
	EventRunFailed:   "RunFailed",
	EventRunEnded:    "RunEnded",
}

func (t EventType) String() string {
	if n, ok := eventTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is one recorded call on a Sink. Only the fields meaningful for Type
// are set.
type Event struct {
	Type EventType

	// Module and Count are set for EventRunStarted.
	Module string
	Count  int
	// ID is set for per-test events.
	ID TestID
	// Message is set for EventTestFailed and EventRunFailed.
	Message string
	// Metrics is set for EventTestEnded and EventRunEnded. It is never nil
	// for those events.
	Metrics map[string]string
	// Elapsed is set for EventRunEnded.
	Elapsed time.Duration
}

func (e Event) String() string {
	switch e.Type {
	case EventRunStarted:
		return fmt.Sprintf("RunStarted(%s, %d)", e.Module, e.Count)
	case EventTestStarted, EventTestEnded:
		return fmt.Sprintf("%v(%v)", e.Type, e.ID)
	case EventTestFailed:
		return fmt.Sprintf("TestFailed(%v, %q)", e.ID, e.Message)
	case EventRunFailed:
		return fmt.Sprintf("RunFailed(%q)", e.Message)
	case EventRunEnded:
		return fmt.Sprintf("RunEnded(%v)", e.Elapsed)
	}
	return e.Type.String()
}

// Send delivers e to s.
func (e Event) Send(s Sink) {
	switch e.Type {
	case EventRunStarted:
		s.RunStarted(e.Module, e.Count)
	case EventTestStarted:
		s.TestStarted(e.ID)
	case EventTestFailed:
		s.TestFailed(e.ID, e.Message)
	case EventTestEnded:
		s.TestEnded(e.ID, e.Metrics)
	case EventRunFailed:
		s.RunFailed(e.Message)
	case EventRunEnded:
		s.RunEnded(e.Elapsed, e.Metrics)
	}
}

func copyMetrics(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Recorder is a Sink that keeps every event in memory.
type Recorder struct {
	events []Event
}

var _ Sink = &Recorder{}

// Events returns the events recorded so far.
func (r *Recorder) Events() []Event {
	return append([]Event(nil), r.events...)
}

// Replay sends the recorded events to s in order.
func (r *Recorder) Replay(s Sink) {
	for _, e := range r.events {
		e.Send(s)
	}
}

func (r *Recorder) RunStarted(module string, count int) {
	r.events = append(r.events, Event{Type: EventRunStarted, Module: module, Count: count})
}

func (r *Recorder) TestStarted(id TestID) {
	r.events = append(r.events, Event{Type: EventTestStarted, ID: id})
}

func (r *Recorder) TestFailed(id TestID, msg string) {
	r.events = append(r.events, Event{Type: EventTestFailed, ID: id, Message: msg})
}

func (r *Recorder) TestEnded(id TestID, metrics map[string]string) {
	r.events = append(r.events, Event{Type: EventTestEnded, ID: id, Metrics: copyMetrics(metrics)})
}

func (r *Recorder) RunFailed(msg string) {
	r.events = append(r.events, Event{Type: EventRunFailed, Message: msg})
}

func (r *Recorder) RunEnded(elapsed time.Duration, metrics map[string]string) {
	r.events = append(r.events, Event{Type: EventRunEnded, Elapsed: elapsed, Metrics: copyMetrics(metrics)})
}

// Summary counts the outcomes of recorded events.
type Summary struct {
	Runs        int
	Passed      []TestID
	Failed      []TestID
	RunFailures []string
}

// OK reports whether no test or run failed.
func (s *Summary) OK() bool {
	return len(s.Failed) == 0 && len(s.RunFailures) == 0
}

// Summary classifies the recorded tests. A test is failed if any
// TestFailed was recorded for it before its TestEnded.
func (r *Recorder) Summary() *Summary {
	s := &Summary{}
	failed := make(map[TestID]bool)
	for _, e := range r.events {
		switch e.Type {
		case EventRunStarted:
			s.Runs++
		case EventTestFailed:
			failed[e.ID] = true
		case EventTestEnded:
			if failed[e.ID] {
				s.Failed = append(s.Failed, e.ID)
				delete(failed, e.ID)
			} else {
				s.Passed = append(s.Passed, e.ID)
			}
		case EventRunFailed:
			s.RunFailures = append(s.RunFailures, e.Message)
		}
	}
	return s
}
