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

// Package shutil quotes arguments for POSIX shells.
//
// Device shell commands travel as one string through "adb shell", and failed
// host commands are reported as a single line; both need arguments quoted so
// the line reads back as the original argv.
package shutil

import "strings"

// isSafe reports whether r never needs quoting. '=' is only safe after the
// first character since a leading '=' expands in zsh.
func isSafe(r rune, first bool) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case strings.ContainsRune("-_@%+:,./", r):
		return true
	case r == '=':
		return !first
	}
	return false
}

// Quote returns s quoted so that a shell reads it as a single word.
// s is returned unchanged when no quoting is needed.
func Quote(s string) string {
	safe := s != ""
	for i, r := range s {
		if !isSafe(r, i == 0) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Join quotes each of args and joins them with spaces.
func Join(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}
