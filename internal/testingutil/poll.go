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

// Package testingutil provides waiting helpers for device state.
package testingutil

import (
	"context"
	"time"

	"android.googlesource.com/platform/test/vts/ctxutil"
	"android.googlesource.com/platform/test/vts/errors"
)

const defaultPollInterval = 100 * time.Millisecond

// PollOptions controls Poll.
type PollOptions struct {
	// Timeout bounds the whole poll. Non-positive means only the context
	// deadline applies.
	Timeout time.Duration
	// Interval is the pause between attempts. Non-positive selects a default.
	Interval time.Duration
}

type pollBreak struct {
	err error
}

func (b *pollBreak) Error() string {
	return b.err.Error()
}

// PollBreak wraps err so that Poll returns it immediately instead of
// retrying.
func PollBreak(err error) error {
	return &pollBreak{err}
}

// Poll calls f until it returns nil, f returns an error wrapped by PollBreak,
// or the timeout expires. On timeout the last error from f is included.
func Poll(ctx context.Context, f func(context.Context) error, opts *PollOptions) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	timeout := ctxutil.MaxTimeout
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := defaultPollInterval
	if opts != nil && opts.Interval > 0 {
		interval = opts.Interval
	}

	var lastErr error
	for {
		err := f(ctx)
		if err == nil {
			return nil
		}
		if b, ok := err.(*pollBreak); ok {
			return b.err
		}
		// Keep the error seen before the deadline, not the deadline error
		// f may return once ctx expires.
		if lastErr == nil || ctx.Err() == nil {
			lastErr = err
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return errors.Wrapf(lastErr, "%s; last error follows", ctx.Err())
		}
	}
}
