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


// Package ratelimit provides a per-key minimum-interval throttle.
//
// The limiter is advisory backpressure for an upstream conversational
// loop, not a hard queue: callers decide whether to drop, delay, or warn
// on a limited call. Keys (typically usernames) are independent; a key
// that was never recorded is never limited.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter tracks the last recorded operation per key and reports whether
// a new operation for that key arrives before the configured interval has
// elapsed. Limiter is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

// NewLimiter creates a limiter with the given minimum interval between
// operations for the same key.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		last:     make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// IsLimited reports whether less than the interval has elapsed since the
// last recorded operation for key. An unseen key is never limited.
func (l *Limiter) IsLimited(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.last[key]
	if !ok {
		return false
	}
	return l.now().Sub(last) < l.interval
}

// Record stamps now as the last operation time for key.
func (l *Limiter) Record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[key] = l.now()
}

// Wait blocks until the key is no longer limited or the context is
// cancelled, then records the operation. Callers that prefer to drop or
// warn instead of delaying should use IsLimited/Record directly.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	last, ok := l.last[key]
	now := l.now()
	l.mu.Unlock()

	if ok {
		if remaining := l.interval - now.Sub(last); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	l.Record(key)
	return nil
}

// Interval returns the configured minimum interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
