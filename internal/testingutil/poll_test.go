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

package testingutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"android.googlesource.com/platform/test/vts/errors"
)

func TestPoll(t *testing.T) {
	const succeedAt = 3
	calls := 0
	err := Poll(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < succeedAt {
			return errors.New("sys.boot_completed is 0")
		}
		return nil
	}, &PollOptions{Interval: time.Millisecond})
	if err != nil {
		t.Fatal("Poll failed: ", err)
	}
	if calls != succeedAt {
		t.Errorf("f called %d times; want %d", calls, succeedAt)
	}
}

func TestPollBreak(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), func(ctx context.Context) error {
		calls++
		return PollBreak(errors.New("device not found"))
	}, &PollOptions{Interval: time.Millisecond})
	if err == nil || err.Error() != "device not found" {
		t.Errorf("Poll returned %v; want device not found", err)
	}
	if calls != 1 {
		t.Errorf("f called %d times; want 1", calls)
	}
}

func TestPollTimeout(t *testing.T) {
	err := Poll(context.Background(), func(ctx context.Context) error {
		return errors.New("still booting")
	}, &PollOptions{Timeout: 20 * time.Millisecond, Interval: time.Millisecond})
	if err == nil {
		t.Fatal("Poll succeeded unexpectedly")
	}
	if !strings.Contains(err.Error(), "still booting") {
		t.Errorf("Poll error %q does not contain the last error", err)
	}
}

func TestPollCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	if err := Poll(ctx, func(ctx context.Context) error {
		called = true
		return nil
	}, nil); err != context.Canceled {
		t.Errorf("Poll returned %v; want %v", err, context.Canceled)
	}
	if called {
		t.Error("f was called on a canceled context")
	}
}
