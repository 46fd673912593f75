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

// Package timespan holds the signed, nanosecond-resolution duration type
// used throughout splitcore, the dual real-time/game-time Time pair and
// the TimingMethod selector.
package timespan // import "splitcore.dev/splitcore/timespan"

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fortio.org/safecast"
)

// TimeSpan is a signed duration with nanosecond resolution. Unlike
// time.Duration it saturates instead of wrapping on overflow, which matters
// for a timer that accumulates many splits over a very long attempt.
type TimeSpan int64

const (
	// Zero is the zero TimeSpan, exported for readability at call sites.
	Zero TimeSpan = 0

	maxTimeSpan = TimeSpan(math.MaxInt64)
	minTimeSpan = TimeSpan(math.MinInt64)

	nanosPerSecond = int64(time.Second)
)

// FromDuration converts a stdlib time.Duration (already nanoseconds) to a TimeSpan.
func FromDuration(d time.Duration) TimeSpan {
	return TimeSpan(d)
}

// Duration converts back to a stdlib time.Duration (same underlying unit).
func (t TimeSpan) Duration() time.Duration {
	return time.Duration(t)
}

// FromSeconds builds a TimeSpan from a floating point second count, saturating
// on overflow instead of producing undefined/wrapped results.
func FromSeconds(seconds float64) TimeSpan {
	scaled := seconds * float64(nanosPerSecond)
	if scaled >= float64(maxTimeSpan) {
		return maxTimeSpan
	}
	if scaled <= float64(minTimeSpan) {
		return minTimeSpan
	}
	ns, err := safecast.Convert[int64](scaled)
	if err != nil {
		// Convert only fails on the overflow we already clamped above;
		// fall back to rounding defensively.
		return TimeSpan(math.Round(scaled))
	}
	return TimeSpan(ns)
}

// FromMilliseconds builds a TimeSpan from a millisecond count.
func FromMilliseconds(ms float64) TimeSpan {
	return FromSeconds(ms / 1000.0)
}

// Seconds returns the TimeSpan as a floating point second count.
func (t TimeSpan) Seconds() float64 {
	return float64(t) / float64(nanosPerSecond)
}

// Milliseconds returns the TimeSpan as a floating point millisecond count.
func (t TimeSpan) Milliseconds() float64 {
	return t.Seconds() * 1000.0
}

// Parts returns the lossless (whole_seconds, subsec_nanos) decomposition
// used by serializers that want exact sub-second precision without
// round-tripping through float64. subsecNanos always shares the sign of
// wholeSeconds (or of the TimeSpan when wholeSeconds is zero).
func (t TimeSpan) Parts() (wholeSeconds int64, subsecNanos int64) {
	ns := int64(t)
	wholeSeconds = ns / nanosPerSecond
	subsecNanos = ns % nanosPerSecond
	return wholeSeconds, subsecNanos
}

// Add returns t+other, saturating on overflow.
func (t TimeSpan) Add(other TimeSpan) TimeSpan {
	sum := int64(t) + int64(other)
	// Overflow check: same-sign operands producing a differently-signed
	// result means we wrapped.
	if (int64(t) > 0 && int64(other) > 0 && sum < 0) {
		return maxTimeSpan
	}
	if (int64(t) < 0 && int64(other) < 0 && sum > 0) {
		return minTimeSpan
	}
	return TimeSpan(sum)
}

// Sub returns t-other, saturating on overflow.
func (t TimeSpan) Sub(other TimeSpan) TimeSpan {
	return t.Add(other.Neg())
}

// Neg returns -t, saturating (negating MinInt64 would overflow).
func (t TimeSpan) Neg() TimeSpan {
	if t == minTimeSpan {
		return maxTimeSpan
	}
	return -t
}

// IsZero reports whether the span is exactly zero.
func (t TimeSpan) IsZero() bool {
	return t == 0
}

// Cmp returns -1, 0 or 1 as t is less than, equal to, or greater than other.
func (t TimeSpan) Cmp(other TimeSpan) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

// Precision controls how many fractional digits Format emits.
type Precision int

const (
	// Seconds formats with no fractional part.
	Seconds Precision = iota
	// Tenths formats with one fractional digit.
	Tenths
	// Hundredths formats with two fractional digits.
	Hundredths
	// Milliseconds formats with three fractional digits.
	Milliseconds
)

// FormatOptions controls Format's output.
type FormatOptions struct {
	Precision Precision
	// PadHours/PadMinutes force a fixed width (zero-padded) even when the
	// value would otherwise be omitted (e.g. "0:05.00" vs "5.00").
	PadHours bool
	PadMinutes bool
}

// Format renders the TimeSpan as "[-][[H:]M:]S[.fraction]", the human
// string format used throughout the UI layer, honoring the requested
// precision and padding.
func (t TimeSpan) Format(opts FormatOptions) string {
	neg := t < 0
	abs := t
	if neg {
		abs = t.Neg()
	}
	totalNanos := int64(abs)
	totalSeconds := totalNanos / nanosPerSecond
	subNanos := totalNanos % nanosPerSecond
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	switch {
	case hours > 0 || opts.PadHours:
		fmt.Fprintf(&b, "%d:%02d:%02d", hours, minutes, seconds)
	case minutes > 0 || opts.PadMinutes:
		fmt.Fprintf(&b, "%d:%02d", minutes, seconds)
	default:
		fmt.Fprintf(&b, "%d", seconds)
	}
	frac := formatFraction(subNanos, opts.Precision)
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// String implements fmt.Stringer with hundredths precision, the common
// case for interactive display.
func (t TimeSpan) String() string {
	return t.Format(FormatOptions{Precision: Hundredths})
}

func formatFraction(subNanos int64, p Precision) string {
	switch p {
	case Seconds:
		return ""
	case Tenths:
		return strconv.Itoa(int(subNanos / 100000000))
	case Hundredths:
		return fmt.Sprintf("%02d", subNanos/10000000)
	case Milliseconds:
		return fmt.Sprintf("%03d", subNanos/1000000)
	default:
		return ""
	}
}

// ErrEmptyInput is returned when Parse is given an empty (or whitespace
// only) string.
var ErrEmptyInput = errors.New("timespan: empty input")

// ErrInvalidFraction is returned when the fractional part contains
// non-digit characters.
var ErrInvalidFraction = errors.New("timespan: invalid fractional digits")

// ErrOverflow is returned when the parsed value does not fit in a TimeSpan.
var ErrOverflow = errors.New("timespan: value overflows")

// ErrTrailingGarbage is returned when characters remain after a valid parse.
var ErrTrailingGarbage = errors.New("timespan: trailing garbage")

// Parse parses "[-][D.][[H:]M:]S[.fraction]" where D is an optional leading
// day count separated by a dot (e.g. "1.02:03:04.5"). Empty input, non-digit
// fractional characters, arithmetic overflow and trailing garbage are all
// parse errors, per spec.
func Parse(s string) (TimeSpan, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyInput
	}
	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrEmptyInput, orig)
	}

	var days int64
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		// Disambiguate a leading day-count ("1.02:03:04") from a bare
		// fractional-seconds form ("5.25") by checking for a colon later
		// in the string.
		rest := s[idx+1:]
		if strings.Contains(rest, ":") {
			d, err := strconv.ParseInt(s[:idx], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: bad day count in %q", ErrInvalidFraction, orig)
			}
			days = d
			s = rest
		}
	}

	fracStr := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		fracStr = s[idx+1:]
		s = s[:idx]
		if fracStr == "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFraction, orig)
		}
		for _, r := range fracStr {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("%w: %q", ErrInvalidFraction, orig)
			}
		}
	}

	fields := strings.Split(s, ":")
	for _, f := range fields {
		if f == "" {
			return 0, fmt.Errorf("%w: %q", ErrTrailingGarbage, orig)
		}
	}
	var hours, minutes, seconds int64
	var err error
	switch len(fields) {
	case 1:
		seconds, err = strconv.ParseInt(fields[0], 10, 64)
	case 2:
		minutes, err = strconv.ParseInt(fields[0], 10, 64)
		if err == nil {
			seconds, err = strconv.ParseInt(fields[1], 10, 64)
		}
	case 3:
		hours, err = strconv.ParseInt(fields[0], 10, 64)
		if err == nil {
			minutes, err = strconv.ParseInt(fields[1], 10, 64)
		}
		if err == nil {
			seconds, err = strconv.ParseInt(fields[2], 10, 64)
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrTrailingGarbage, orig)
	}
	if err != nil {
		return 0, fmt.Errorf("timespan: %w: %q", err, orig)
	}

	// Pad or truncate the fraction to exactly 9 digits (nanoseconds).
	padded := fracStr
	if len(padded) > 9 {
		padded = padded[:9]
	} else {
		padded += strings.Repeat("0", 9-len(padded))
	}
	var nanos int64
	for _, r := range padded {
		nanos = nanos*10 + int64(r-'0')
	}

	total := TimeSpan(0)
	parts := []int64{days * 86400, hours * 3600, minutes * 60, seconds}
	for _, p := range parts {
		total = total.Add(TimeSpan(p * nanosPerSecond))
	}
	total = total.Add(TimeSpan(nanos))
	if neg {
		total = total.Neg()
	}
	return total, nil
}

// TimingMethod selects which side of a Time pair to use.
type TimingMethod int

const (
	// RealTime is elapsed wall-clock time excluding paused intervals.
	RealTime TimingMethod = iota
	// GameTime is the derived or explicitly driven in-game time.
	GameTime
)

// String implements fmt.Stringer.
func (m TimingMethod) String() string {
	if m == GameTime {
		return "Game Time"
	}
	return "Real Time"
}

// Other returns the complementary timing method.
func (m TimingMethod) Other() TimingMethod {
	if m == RealTime {
		return GameTime
	}
	return RealTime
}

// Time is a pair of (real_time, game_time), either of which may be absent
// (nil). Absence means "not recorded for that timing method" and propagates
// through arithmetic.
type Time struct {
	RealTimeSpan *TimeSpan
	GameTimeSpan *TimeSpan
}

// Empty is the Time value with both sides absent.
var Empty = Time{}

// NewTime builds a Time from two optional spans.
func NewTime(real, game *TimeSpan) Time {
	return Time{RealTimeSpan: real, GameTimeSpan: game}
}

// Single builds a Time with only one timing method populated.
func Single(method TimingMethod, v TimeSpan) Time {
	t := Time{}
	t.Set(method, v)
	return t
}

// Get selects one side of the pair by TimingMethod; returns (value, ok).
func (t Time) Get(method TimingMethod) (TimeSpan, bool) {
	var p *TimeSpan
	if method == RealTime {
		p = t.RealTimeSpan
	} else {
		p = t.GameTimeSpan
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set mutates t in place, populating the given side.
func (t *Time) Set(method TimingMethod, v TimeSpan) {
	val := v
	if method == RealTime {
		t.RealTimeSpan = &val
	} else {
		t.GameTimeSpan = &val
	}
}

// Clear removes the given side (makes it absent).
func (t *Time) Clear(method TimingMethod) {
	if method == RealTime {
		t.RealTimeSpan = nil
	} else {
		t.GameTimeSpan = nil
	}
}

// IsEmpty reports whether both sides are absent.
func (t Time) IsEmpty() bool {
	return t.RealTimeSpan == nil && t.GameTimeSpan == nil
}

// Equal reports whether both sides hold the same presence and value.
func (t Time) Equal(other Time) bool {
	eq := func(a, b *TimeSpan) bool {
		if (a == nil) != (b == nil) {
			return false
		}
		return a == nil || *a == *b
	}
	return eq(t.RealTimeSpan, other.RealTimeSpan) && eq(t.GameTimeSpan, other.GameTimeSpan)
}

// Add returns the field-wise sum; absent sides propagate as absent.
func (t Time) Add(other Time) Time {
	return combine(t, other, TimeSpan.Add)
}

// Sub returns the field-wise difference; absent sides propagate as absent.
func (t Time) Sub(other Time) Time {
	return combine(t, other, TimeSpan.Sub)
}

func combine(a, b Time, op func(TimeSpan, TimeSpan) TimeSpan) Time {
	var out Time
	if a.RealTimeSpan != nil && b.RealTimeSpan != nil {
		v := op(*a.RealTimeSpan, *b.RealTimeSpan)
		out.RealTimeSpan = &v
	}
	if a.GameTimeSpan != nil && b.GameTimeSpan != nil {
		v := op(*a.GameTimeSpan, *b.GameTimeSpan)
		out.GameTimeSpan = &v
	}
	return out
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (t Time) Clone() Time {
	var out Time
	if t.RealTimeSpan != nil {
		v := *t.RealTimeSpan
		out.RealTimeSpan = &v
	}
	if t.GameTimeSpan != nil {
		v := *t.GameTimeSpan
		out.GameTimeSpan = &v
	}
	return out
}
