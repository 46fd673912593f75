// Copyright 2017 Fortio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clock provides the monotonic Instant used by the timer state
// machine. Differences between Instants form a timespan.TimeSpan that keeps
// advancing across OS suspend/resume: Now reads the platform's boot-time (or
// best available continuous) clock rather than Go's default monotonic
// reading, which on Linux is CLOCK_MONOTONIC and stops while the machine is
// suspended.
package clock // import "splitcore.dev/splitcore/clock"

import (
	"splitcore.dev/splitcore/timespan"
)

// Instant is a monotonic point in time. It carries no calendar information;
// only differences between Instants are meaningful.
type Instant struct {
	ns int64
	ok bool
}

// Now returns the current Instant, sourced from monotonicNanos (platform
// specific: CLOCK_BOOTTIME on Linux, CLOCK_MONOTONIC elsewhere on unix,
// stdlib time.Now as the last-resort fallback).
func Now() Instant {
	return Instant{ns: monotonicNanos(), ok: true}
}

// Sub returns the TimeSpan elapsed from other to i (i - other).
func (i Instant) Sub(other Instant) timespan.TimeSpan {
	return timespan.TimeSpan(i.ns - other.ns)
}

// Add returns the Instant offset by d (may be negative).
func (i Instant) Add(d timespan.TimeSpan) Instant {
	return Instant{ns: i.ns + int64(d), ok: i.ok}
}

// IsZero reports whether this is the zero-value Instant (never sampled).
func (i Instant) IsZero() bool {
	return !i.ok
}
