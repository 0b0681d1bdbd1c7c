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

// Package stack captures and formats call stacks for the errors package.
// Use the errors package instead of calling this one directly.
package stack

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	maxFrames = 8 // frames kept per error

	truncated = "\t..." // appended when frames were dropped
)

// Stack is a snapshot of program counters.
type Stack []uintptr

// New captures the current call stack. skip is the number of frames to omit;
// skip=0 makes the caller of New the innermost frame.
func New(skip int) Stack {
	pcs := make([]uintptr, maxFrames+1)
	return Stack(pcs[:runtime.Callers(skip+2, pcs)])
}

// Frames returns "function (file:line)" descriptions, innermost first.
func (s Stack) Frames() []string {
	var frames []string
	it := runtime.CallersFrames(s)
	for {
		f, more := it.Next()
		frames = append(frames, fmt.Sprintf("%s (%s:%d)", f.Function, filepath.Base(f.File), f.Line))
		if !more {
			return frames
		}
	}
}

// String renders the stack with one indented "at" line per frame.
func (s Stack) String() string {
	frames := s.Frames()
	var lines []string
	for i, f := range frames {
		if i == maxFrames {
			lines = append(lines, truncated)
			break
		}
		lines = append(lines, "\tat "+f)
	}
	return strings.Join(lines, "\n")
}
