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

// Package resultparser turns test runner output into reporting events.
//
// Runner output comes in two forms: the lines the runner prints while it
// runs, handled by LineParser, and the summary document it writes when it
// finishes, handled by ParseSummary. Both produce the same event sequence
// for the same results.
package resultparser
