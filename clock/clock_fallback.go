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

//go:build !unix

package clock

import "time"

// fallbackEpoch anchors monotonicNanos's stdlib fallback: time.Since(start)
// uses the two time.Time values' embedded monotonic-clock readings rather
// than wall time, so this doesn't jump on an NTP correction.
var fallbackEpoch = time.Now()

// monotonicNanos falls back to the stdlib monotonic reading on platforms
// without golang.org/x/sys/unix's ClockGettime (e.g. Windows, which already
// backs time.Now's monotonic reading with QueryPerformanceCounter rather
// than a suspend-sensitive clock).
func monotonicNanos() int64 {
	return int64(time.Since(fallbackEpoch))
}
