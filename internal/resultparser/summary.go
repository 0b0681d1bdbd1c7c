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
	"encoding/json"
	"io"
	"os"
	"time"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/reporting"
)

// SummaryFilename is the name of the summary document the runner writes in
// its log directory.
const SummaryFilename = "test_run_summary.json"

// moduleErrorKey is the top-level key holding the module-level error.
const moduleErrorKey = "moduleError"

// FailedMessage is reported for a failed case that carries no message.
const FailedMessage = "test failed"

// CaseResult is the result of one test case in a summary document.
type CaseResult struct {
	Name           string  `json:"name"`
	Passed         *bool   `json:"passed"`
	FailureMessage *string `json:"failureMessage,omitempty"`
}

// failure returns the failure message of c, if it failed.
func (c *CaseResult) failure() (string, bool) {
	if c.FailureMessage != nil && *c.FailureMessage != "" {
		return *c.FailureMessage, true
	}
	if !*c.Passed {
		return FailedMessage, true
	}
	return "", false
}

// ModuleResult holds the cases of one module, in document order.
type ModuleResult struct {
	Name  string
	Cases []*CaseResult
}

// SummaryDocument is a decoded summary document.
type SummaryDocument struct {
	Modules []*ModuleResult
	// ModuleError is the module-level error message, or empty.
	ModuleError string
}

// DocumentError is returned for a summary document that cannot be decoded.
type DocumentError struct {
	*errors.E
	// Offset is the byte offset in the document near which decoding failed.
	Offset int64
}

func newDocumentError(offset int64, cause error, format string, args ...interface{}) *DocumentError {
	return &DocumentError{E: errors.Wrapf(cause, format, args...), Offset: offset}
}

// ReadSummary reads and decodes the summary document at path.
func ReadSummary(path string) (*SummaryDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := DecodeSummary(f)
	if err != nil {
		return nil, errors.Wrapf(err, "bad summary document %s", path)
	}
	return doc, nil
}

// DecodeSummary decodes a summary document, keeping modules in document
// order.
func DecodeSummary(r io.Reader) (*SummaryDocument, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	doc := &SummaryDocument{}
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, newDocumentError(dec.InputOffset(), err, "failed to read key")
		}
		key := tok.(string) // object keys are always strings
		if seen[key] {
			return nil, newDocumentError(dec.InputOffset(), nil, "duplicate key %q", key)
		}
		seen[key] = true

		if key == moduleErrorKey {
			if err := dec.Decode(&doc.ModuleError); err != nil {
				return nil, newDocumentError(dec.InputOffset(), err, "%s must be a string", moduleErrorKey)
			}
			continue
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, newDocumentError(dec.InputOffset(), err, "failed to read module %q", key)
		}
		mod, err := decodeModule(key, raw)
		if err != nil {
			return nil, newDocumentError(dec.InputOffset(), err, "bad module %q", key)
		}
		doc.Modules = append(doc.Modules, mod)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, newDocumentError(dec.InputOffset(), nil, "trailing data after document")
	}
	return doc, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return newDocumentError(dec.InputOffset(), err, "expected %v", want)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return newDocumentError(dec.InputOffset(), nil, "expected %v, got %v", want, tok)
	}
	return nil
}

func decodeModule(name string, raw json.RawMessage) (*ModuleResult, error) {
	var cases []*CaseResult
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, errors.Wrap(err, "module value must be a list of cases")
	}
	for i, c := range cases {
		if c == nil {
			return nil, errors.Errorf("case %d is null", i)
		}
		if c.Name == "" {
			return nil, errors.Errorf("case %d has no name", i)
		}
		if c.Passed == nil {
			return nil, errors.Errorf("case %s has no passed field", c.Name)
		}
	}
	return &ModuleResult{Name: name, Cases: cases}, nil
}

// ParseSummary reports the results in doc to sink. Each module is reported
// as one run, and the module error, if any, is reported in every run after
// its cases. A document without modules is reported as an empty run named
// runName. elapsed is reported as the duration of every run.
func ParseSummary(doc *SummaryDocument, sink reporting.Sink, runName string, elapsed time.Duration) {
	mods := doc.Modules
	if len(mods) == 0 {
		mods = []*ModuleResult{{Name: runName}}
	}
	for _, m := range mods {
		sink.RunStarted(m.Name, len(m.Cases))
		for _, c := range m.Cases {
			id := reporting.TestID{Module: m.Name, Test: c.Name}
			sink.TestStarted(id)
			if msg, failed := c.failure(); failed {
				sink.TestFailed(id, msg)
			}
			sink.TestEnded(id, map[string]string{})
		}
		if doc.ModuleError != "" {
			sink.RunFailed(doc.ModuleError)
		}
		sink.RunEnded(elapsed, map[string]string{})
	}
}
