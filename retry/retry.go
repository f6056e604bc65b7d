// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package retry provides bounded retry with exponential backoff for
// fallible remote operations (embedding services, secondary memory
// backends). It is never used around purely local operations.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Policy describes a bounded retry schedule. An operation is attempted
// Retries+1 times in total; after a failed attempt the policy waits
// Delay * Backoff^attempt before the next one. The error of the final
// attempt is returned unchanged.
type Policy struct {
	Retries int           // additional attempts after the first
	Delay   time.Duration // wait before the first retry
	Backoff float64       // multiplier applied to the wait after each failure
}

// DefaultPolicy returns the schedule used for remote memory and embedding
// calls: 3 total attempts starting at 500ms with doubling.
func DefaultPolicy() Policy {
	return Policy{Retries: 2, Delay: 500 * time.Millisecond, Backoff: 2.0}
}

// Do runs op under the policy. The context is checked before every attempt
// and during backoff waits; cancellation returns ctx.Err().
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	delay := p.Delay
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 0 {
				slog.Debug("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}

		// Don't sleep after the last attempt
		if attempt == attempts-1 {
			break
		}

		slog.Debug("operation failed, will retry",
			"attempt", attempt+1, "attempts", attempts, "delay", delay, "error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Backoff)
	}

	return lastErr
}
