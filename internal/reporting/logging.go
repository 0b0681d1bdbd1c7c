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
	"context"
	"time"

	"android.googlesource.com/platform/test/vts/internal/logging"
)

// LoggingSink writes events to the logger attached to a context.
type LoggingSink struct {
	ctx    context.Context
	failed map[TestID]bool
}

var _ Sink = &LoggingSink{}

// NewLoggingSink returns a LoggingSink logging to ctx.
func NewLoggingSink(ctx context.Context) *LoggingSink {
	return &LoggingSink{ctx: ctx, failed: make(map[TestID]bool)}
}

func (s *LoggingSink) RunStarted(module string, count int) {
	logging.Infof(s.ctx, "==========> %s <========== (%d tests)", module, count)
}

func (s *LoggingSink) TestStarted(id TestID) {
	logging.Debugf(s.ctx, "[ RUN    ] %v", id)
}

func (s *LoggingSink) TestFailed(id TestID, msg string) {
	s.failed[id] = true
	logging.Infof(s.ctx, "[ FAIL   ] %v: %s", id, msg)
}

func (s *LoggingSink) TestEnded(id TestID, metrics map[string]string) {
	if s.failed[id] {
		delete(s.failed, id)
		return
	}
	logging.Infof(s.ctx, "[ PASS   ] %v", id)
}

func (s *LoggingSink) RunFailed(msg string) {
	logging.Infof(s.ctx, "Run failed: %s", msg)
}

func (s *LoggingSink) RunEnded(elapsed time.Duration, metrics map[string]string) {
	logging.Infof(s.ctx, "Run finished in %v", elapsed)
}
