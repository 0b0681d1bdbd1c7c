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

// Package ctxutil provides helpers for context deadlines.
package ctxutil

import (
	"context"
	"math"
	"time"
)

// MaxTimeout is the largest time.Duration. Passing it to context.WithTimeout
// keeps the parent's deadline.
const MaxTimeout time.Duration = math.MaxInt64

// Shorten returns a context whose deadline is d earlier than ctx's, leaving d
// for cleanup with the original ctx. Without a deadline on ctx, the returned
// context has none either.
func Shorten(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	dl, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, dl.Add(-d))
}

// Remaining returns the time left until ctx's deadline, or MaxTimeout if
// there is none.
func Remaining(ctx context.Context) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return MaxTimeout
	}
	return time.Until(dl)
}
