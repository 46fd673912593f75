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

// Package comparison implements the built-in comparison generators:
// functions that write into each segment's comparison mapping under
// their own name, run in a fixed order and required to be idempotent.
package comparison // import "splitcore.dev/splitcore/comparison"

import (
	"sort"

	"splitcore.dev/splitcore/analysis"
	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/segment"
	"splitcore.dev/splitcore/skillcurve"
	"splitcore.dev/splitcore/timespan"
)

// Reserved generator names.
const (
	PersonalBest = segment.PersonalBestComparisonName
	BestSegments = "Best Segments"
	WorstSegments = "Worst Segments"
	AverageSegment = "Average Segments"
	MedianSegment = "Median Segments"
	LatestRun = "Latest Run"
	BalancedPB = "Balanced PB"
)

// Order is the fixed generator execution order required after every
// reset-with-save and after any Editor close that mutated history.
var Order = []string{PersonalBest, BestSegments, WorstSegments, AverageSegment, MedianSegment, LatestRun, BalancedPB}

// Generator writes one named comparison's per-segment times into r.
type Generator func(r *run.Run)

// Generators maps a reserved name to its Generator. BalancedPB is omitted:
// it needs an externally supplied goal time, so it's invoked via
// GenerateBalancedPB instead of through RunAll.
var Generators = map[string]Generator{
	PersonalBest: GeneratePersonalBest,
	BestSegments: GenerateBestSegments,
	WorstSegments: GenerateWorstSegments,
	AverageSegment: GenerateAverageSegments,
	MedianSegment: GenerateMedianSegments,
	LatestRun: GenerateLatestRun,
}

// RunAll runs every generator in Order except Balanced PB, ensuring the
// idempotence property: running this twice in a row leaves the
// comparisons unchanged.
func RunAll(r *run.Run) {
	for _, name := range Order {
		gen, ok := Generators[name]
		if !ok {
			continue
		}
		ensureComparison(r, name)
		gen(r)
	}
}

func ensureComparison(r *run.Run, name string) {
	if name == PersonalBest {
		return // always present, never independently created
	}
	if !r.HasComparison(name) {
		_ = r.AddComparison(name)
	}
}

// GeneratePersonalBest copies personal_best_split_time into the "Personal
// Best" comparison on every segment; authoritative, not really "generated"
//.
func GeneratePersonalBest(r *run.Run) {
	for i := 0; i < r.SegmentCount(); i++ {
		s := r.Segment(i)
		s.SetComparison(PersonalBest, s.PersonalBestSplitTime())
	}
}

// GenerateBestSegments writes the cumulative sum of best_segment_time, with
// combined-segment handling, into "Best Segments", delegating
// to the same forward-relaxation sweep analysis.SumOfBest uses to answer
// the identical question.
func GenerateBestSegments(r *run.Run) {
	perMethod := map[timespan.TimingMethod][]timespan.TimeSpan{
		timespan.RealTime: analysis.SumOfBest(r, timespan.RealTime),
		timespan.GameTime: analysis.SumOfBest(r, timespan.GameTime),
	}
	writeCumulative(r, BestSegments, perMethod)
}

// GenerateWorstSegments is the dual of Best Segments: the cumulative sum of
// the slowest recorded segment time at each index.
func GenerateWorstSegments(r *run.Run) {
	writeCumulative(r, WorstSegments, extremeSegmentTimes(r, worstOf))
}

// GenerateAverageSegments writes the arithmetic mean of recorded segment
// times per segment, cumulated.
func GenerateAverageSegments(r *run.Run) {
	writeCumulative(r, AverageSegment, aggregateSegmentTimes(r, mean))
}

// GenerateMedianSegments writes the median of recorded segment times per
// segment, cumulated.
func GenerateMedianSegments(r *run.Run) {
	writeCumulative(r, MedianSegment, aggregateSegmentTimes(r, median))
}

// GenerateLatestRun writes the segment times from the most recent attempt
// (the entry with the highest positive attempt index), cumulated.
func GenerateLatestRun(r *run.Run) {
	writeCumulative(r, LatestRun, latestAttemptSegmentTimes(r))
}

// GenerateBalancedPB runs the Balanced-PB percentile solver against target
// and writes the result into the "Balanced PB" comparison
func GenerateBalancedPB(r *run.Run, method timespan.TimingMethod, target timespan.TimeSpan) (pbChance float64) {
	ensureComparison(r, BalancedPB)
	curves := skillcurve.BuildAll(r, method)
	splits, chance := skillcurve.Solve(curves, target)
	for i, cum := range splits {
		t, _ := r.Segment(i).Comparison(BalancedPB)
		t.Set(method, cum)
		r.Segment(i).SetComparison(BalancedPB, t)
	}
	return chance
}

// --- shared aggregation helpers, one per timing method then combined ---

func writeCumulative(r *run.Run, name string, perMethod map[timespan.TimingMethod][]timespan.TimeSpan) {
	n := r.SegmentCount()
	for i := 0; i < n; i++ {
		var t timespan.Time
		for _, method := range []timespan.TimingMethod{timespan.RealTime, timespan.GameTime} {
			vals := perMethod[method]
			if i < len(vals) {
				t.Set(method, vals[i])
			}
		}
		r.Segment(i).SetComparison(name, t)
	}
}

func extremeSegmentTimes(r *run.Run, pick func(a, b timespan.TimeSpan) timespan.TimeSpan) map[timespan.TimingMethod][]timespan.TimeSpan {
	out := make(map[timespan.TimingMethod][]timespan.TimeSpan)
	for _, method := range []timespan.TimingMethod{timespan.RealTime, timespan.GameTime} {
		n := r.SegmentCount()
		vals := make([]timespan.TimeSpan, n)
		var running timespan.TimeSpan
		for i := 0; i < n; i++ {
			var extreme timespan.TimeSpan
			found := false
			r.Segment(i).History().IterIndexOrder(func(_ int32, t timespan.Time) {
				v, ok := t.Get(method)
				if !ok {
					return
				}
				if !found {
					extreme, found = v, true
					return
				}
				extreme = pick(extreme, v)
			})
			if found {
				running = running.Add(extreme)
			}
			vals[i] = running
		}
		out[method] = vals
	}
	return out
}

func worstOf(a, b timespan.TimeSpan) timespan.TimeSpan {
	if b > a {
		return b
	}
	return a
}

func aggregateSegmentTimes(r *run.Run, agg func([]timespan.TimeSpan) timespan.TimeSpan) map[timespan.TimingMethod][]timespan.TimeSpan {
	out := make(map[timespan.TimingMethod][]timespan.TimeSpan)
	for _, method := range []timespan.TimingMethod{timespan.RealTime, timespan.GameTime} {
		n := r.SegmentCount()
		vals := make([]timespan.TimeSpan, n)
		var running timespan.TimeSpan
		for i := 0; i < n; i++ {
			var samples []timespan.TimeSpan
			r.Segment(i).History().IterIndexOrder(func(_ int32, t timespan.Time) {
				if v, ok := t.Get(method); ok {
					samples = append(samples, v)
				}
			})
			if len(samples) > 0 {
				running = running.Add(agg(samples))
			}
			vals[i] = running
		}
		out[method] = vals
	}
	return out
}

func mean(samples []timespan.TimeSpan) timespan.TimeSpan {
	var sum timespan.TimeSpan
	for _, s := range samples {
		sum = sum.Add(s)
	}
	return timespan.TimeSpan(int64(sum) / int64(len(samples)))
}

func median(samples []timespan.TimeSpan) timespan.TimeSpan {
	sorted := append([]timespan.TimeSpan(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func latestAttemptSegmentTimes(r *run.Run) map[timespan.TimingMethod][]timespan.TimeSpan {
	out := make(map[timespan.TimingMethod][]timespan.TimeSpan)
	for _, method := range []timespan.TimingMethod{timespan.RealTime, timespan.GameTime} {
		n := r.SegmentCount()
		vals := make([]timespan.TimeSpan, n)
		var running timespan.TimeSpan
		for i := 0; i < n; i++ {
			var latestIdx int32
			var latestVal timespan.TimeSpan
			found := false
			r.Segment(i).History().IterIndexOrder(func(idx int32, t timespan.Time) {
				v, ok := t.Get(method)
				if !ok {
					return
				}
				if !found || idx > latestIdx {
					latestIdx, latestVal, found = idx, v, true
				}
			})
			if found {
				running = running.Add(latestVal)
			}
			vals[i] = running
		}
		out[method] = vals
	}
	return out
}
