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

package resultparser

import (
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"golang.org/x/exp/slices"

	"android.googlesource.com/platform/test/vts/internal/reporting"
)

const (
	testCaseMarker = "[Test Case] "
	bannerPrefix   = "==========> "
	bannerSuffix   = " <=========="

	// timestampLayout is the layout of the third field of runner log lines.
	timestampLayout = "15:04:05.000"
	// timestampField is the index of the timestamp among the fields of a
	// line.
	timestampField = 2

	// NoResultMessage is reported for a test that started but never
	// reported a result.
	NoResultMessage = "test did not report a result"
)

// Result tokens printed after a test name in a "[Test Case]" line.
const (
	resultPass      = "PASS"
	resultFail      = "FAIL"
	resultSkip      = "SKIP"
	resultTimeout   = "TIMEOUT"
	resultException = "EXCEPTION"
	resultError     = "ERROR"
)

var knownResults = []string{resultPass, resultFail, resultSkip, resultTimeout, resultException, resultError}

type caseResult struct {
	result string
	detail string
}

// LineParser collects runner output lines and reports the results they
// describe when Done is called.
type LineParser struct {
	sink   reporting.Sink
	module string

	names   []string
	results map[string]*caseResult

	current   string // test whose result is pending, if any
	lastError string // last ERROR-level message since current started

	start    time.Time
	end      time.Time
	hasStart bool
	hasEnd   bool
	done     bool
}

// NewLineParser returns a parser reporting to sink. module names the run; if
// empty, the module banner printed by the runner is used. expected lists
// test names known before the run; they are reported first, in order, even
// if the output never mentions them.
func NewLineParser(sink reporting.Sink, module string, expected []string) *LineParser {
	p := &LineParser{
		sink:    sink,
		module:  module,
		results: make(map[string]*caseResult),
	}
	for _, n := range expected {
		p.addName(n)
	}
	return p
}

func (p *LineParser) addName(name string) {
	if !slices.Contains(p.names, name) {
		p.names = append(p.names, name)
	}
}

// ProcessNewLines consumes complete output lines. It may be called any
// number of times before Done.
func (p *LineParser) ProcessNewLines(lines []string) {
	for _, l := range lines {
		p.processLine(l)
	}
}

// ProcessLine consumes one output line. It has the signature of
// genericexec.LineFunc so that output can be parsed as it is produced.
func (p *LineParser) ProcessLine(line string) {
	p.processLine(line)
}

func (p *LineParser) processLine(line string) {
	if p.done {
		return
	}
	line = stripansi.Strip(strings.TrimRight(line, "\r\n"))

	if ts, ok := parseTimestamp(line); ok {
		if !p.hasStart {
			p.start, p.hasStart = ts, true
		}
		p.end, p.hasEnd = ts, true
	}

	if i := strings.Index(line, bannerPrefix); i >= 0 && p.module == "" {
		rest := line[i+len(bannerPrefix):]
		if j := strings.Index(rest, bannerSuffix); j > 0 {
			p.module = strings.TrimSpace(rest[:j])
		}
		return
	}

	if i := strings.Index(line, testCaseMarker); i >= 0 {
		p.processMarker(strings.Fields(line[i+len(testCaseMarker):]))
		return
	}

	if msg, ok := errorMessage(line); ok && p.current != "" {
		p.lastError = msg
	}
}

func (p *LineParser) processMarker(fields []string) {
	if len(fields) == 0 {
		return
	}
	name := fields[0]
	p.addName(name)

	if len(fields) < 2 || !slices.Contains(knownResults, fields[1]) {
		p.current = name
		p.lastError = ""
		return
	}
	res := &caseResult{result: fields[1]}
	if name == p.current {
		res.detail = p.lastError
	}
	p.results[name] = res
	p.current = ""
	p.lastError = ""
}

// errorMessage returns the message of an ERROR-level log line. The level is
// one of the leading fields; the message is everything after it.
func errorMessage(line string) (string, bool) {
	fields := strings.Fields(line)
	for i := 0; i < len(fields) && i <= timestampField+2; i++ {
		if fields[i] == resultError {
			if i+1 == len(fields) {
				return "", false
			}
			return strings.Join(fields[i+1:], " "), true
		}
	}
	return "", false
}

// parseTimestamp parses the timestamp field of a runner log line.
func parseTimestamp(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) <= timestampField {
		return time.Time{}, false
	}
	ts, err := time.Parse(timestampLayout, fields[timestampField])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Elapsed returns the time between the first and last timestamped lines
// seen so far, or 0 if there are none. Timestamps carry no date, so an end
// earlier than the start is taken to be on the following day.
func (p *LineParser) Elapsed() time.Duration {
	if !p.hasStart || !p.hasEnd {
		return 0
	}
	d := p.end.Sub(p.start)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

// Module returns the run's module name, possibly taken from a banner.
func (p *LineParser) Module() string {
	return p.module
}

// Done reports the collected results to the sink. Later calls do nothing.
func (p *LineParser) Done() {
	if p.done {
		return
	}
	p.done = true

	if len(p.names) == 0 {
		// The runner died before reporting any test.
		p.sink.RunStarted("", 0)
		p.sink.RunEnded(p.Elapsed(), map[string]string{})
		return
	}

	p.sink.RunStarted(p.module, len(p.names))
	for _, n := range p.names {
		p.sink.TestStarted(p.id(n))
	}
	for _, n := range p.names {
		id := p.id(n)
		if msg, failed := p.failure(n); failed {
			p.sink.TestFailed(id, msg)
		}
		p.sink.TestEnded(id, map[string]string{})
	}
	p.sink.RunEnded(p.Elapsed(), map[string]string{})
}

func (p *LineParser) id(name string) reporting.TestID {
	return reporting.TestID{Module: p.module, Test: name}
}

// failure returns the failure message of the named test, if it failed.
func (p *LineParser) failure(name string) (string, bool) {
	res, ok := p.results[name]
	if !ok {
		return NoResultMessage, true
	}
	switch res.result {
	case resultPass, resultSkip:
		return "", false
	case resultTimeout:
		return reporting.TimeoutMessage, true
	}
	if res.detail != "" {
		return res.detail, true
	}
	return res.result, true
}
