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

package genericexec

import (
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// killSession sends sig to every process in session sid. It repeats the
// scan a few times so that children forked during the first pass are also
// caught, and stops early once a pass finds nothing.
func killSession(sid int, sig unix.Signal) {
	const maxPasses = 3
	for i := 0; i < maxPasses; i++ {
		pids, err := process.Pids()
		if err != nil {
			return
		}
		found := 0
		for _, pid := range pids {
			if s, err := unix.Getsid(int(pid)); err == nil && s == sid {
				unix.Kill(int(pid), sig)
				found++
			}
		}
		if found == 0 {
			return
		}
	}
}
