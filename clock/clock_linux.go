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

package clock

import (
	"time"

	"golang.org/x/sys/unix"
)

// monotonicNanos reads CLOCK_BOOTTIME, which (unlike CLOCK_MONOTONIC on
// Linux) keeps advancing while the system is suspended. Kernels older than
// 2.6.39 lack CLOCK_BOOTTIME; ClockGettime fails and this falls back to
// CLOCK_MONOTONIC rather than panicking, since a stale elapsed-time reading
// across a rare suspend is better than crashing the timer.
func monotonicNanos() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err == nil {
		return ts.Nano()
	}
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err == nil {
		return ts.Nano()
	}
	return time.Now().UnixNano()
}
