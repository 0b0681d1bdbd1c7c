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

package adb

import (
	"strings"

	"android.googlesource.com/platform/test/vts/errors"
)

// DeviceNotAvailableError is returned when the device can no longer be
// reached. It is fatal: callers must stop issuing commands to the device.
type DeviceNotAvailableError struct {
	*errors.E
	Serial string
}

func newDeviceNotAvailable(serial string, cause error, format string, args ...interface{}) *DeviceNotAvailableError {
	return &DeviceNotAvailableError{E: errors.Wrapf(cause, format, args...), Serial: serial}
}

// IsDeviceNotAvailable reports whether err or any error it wraps is a
// *DeviceNotAvailableError.
func IsDeviceNotAvailable(err error) bool {
	var dna *DeviceNotAvailableError
	return errors.As(err, &dna)
}

// unavailableMarkers are substrings adb prints to stderr when it cannot talk
// to the device at all.
var unavailableMarkers = []string{
	"not found",
	"device offline",
	"no devices/emulators found",
	"device unauthorized",
}

func looksUnavailable(serial, stderr string) bool {
	for _, m := range unavailableMarkers {
		if !strings.Contains(stderr, m) {
			continue
		}
		// "not found" is only meaningful when it names our device; adb uses
		// the same words for missing files.
		if m == "not found" && !strings.Contains(stderr, "device '"+serial+"' not found") {
			continue
		}
		return true
	}
	return false
}
