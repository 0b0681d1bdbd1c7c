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

// Package genericexec runs external commands with a timeout and returns a
// classified result.
//
// Timeouts are not reported as errors: a command that runs too long is
// killed together with every process it spawned, and its Result carries
// StatusTimeout. Callers decide what a non-success status means to them.
package genericexec
