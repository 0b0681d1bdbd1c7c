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
	"encoding/json"
	"io"
	"os"
	"time"
)

// StreamedResultsFilename is a file name to be used with StreamedWriter.
const StreamedResultsFilename = "streamed_results.jsonl"

// StreamedEvent is the JSON form of an Event written by StreamedWriter.
type StreamedEvent struct {
	Type          string            `json:"type"`
	Module        string            `json:"module,omitempty"`
	Count         int               `json:"count,omitempty"`
	Test          string            `json:"test,omitempty"`
	Message       string            `json:"message,omitempty"`
	Metrics       map[string]string `json:"metrics,omitempty"`
	ElapsedMillis int64             `json:"elapsedMillis,omitempty"`
}

// StreamedWriter is a Sink appending one JSON object per event to a file,
// so that partial results survive a crash of the harness.
type StreamedWriter struct {
	f   *os.File
	enc *json.Encoder
	err error // first write error
}

var _ Sink = &StreamedWriter{}

// NewStreamedWriter opens path for appending, creating it if needed.
func NewStreamedWriter(path string) (*StreamedWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	return &StreamedWriter{f: f, enc: json.NewEncoder(f)}, nil
}

// Close closes the file and returns the first error seen while writing.
func (w *StreamedWriter) Close() error {
	if err := w.f.Close(); err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

func (w *StreamedWriter) write(e *StreamedEvent) {
	if w.err != nil {
		return
	}
	w.err = w.enc.Encode(e)
}

func (w *StreamedWriter) RunStarted(module string, count int) {
	w.write(&StreamedEvent{Type: EventRunStarted.String(), Module: module, Count: count})
}

func (w *StreamedWriter) TestStarted(id TestID) {
	w.write(&StreamedEvent{Type: EventTestStarted.String(), Module: id.Module, Test: id.Test})
}

func (w *StreamedWriter) TestFailed(id TestID, msg string) {
	w.write(&StreamedEvent{Type: EventTestFailed.String(), Module: id.Module, Test: id.Test, Message: msg})
}

func (w *StreamedWriter) TestEnded(id TestID, metrics map[string]string) {
	w.write(&StreamedEvent{Type: EventTestEnded.String(), Module: id.Module, Test: id.Test, Metrics: metrics})
}

func (w *StreamedWriter) RunFailed(msg string) {
	w.write(&StreamedEvent{Type: EventRunFailed.String(), Message: msg})
}

func (w *StreamedWriter) RunEnded(elapsed time.Duration, metrics map[string]string) {
	w.write(&StreamedEvent{Type: EventRunEnded.String(), ElapsedMillis: elapsed.Milliseconds(), Metrics: metrics})
}
