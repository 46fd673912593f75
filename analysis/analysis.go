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

// Package analysis computes the derived, read-only quantities a splits
// display needs every frame: segment/delta times, best-segment checks,
// split coloring, sum-of-best and possible-time-save.
package analysis // import "splitcore.dev/splitcore/analysis"

import (
	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/segment"
	"splitcore.dev/splitcore/timespan"
)

// PrevNonEmptySplit returns the most recent split time strictly before
// index that has a value for method, or (0, false) if none.
func PrevNonEmptySplit(r *run.Run, index int, method timespan.TimingMethod) (timespan.TimeSpan, bool) {
	for i := index - 1; i >= 0; i-- {
		if v, ok := r.Segment(i).SplitTime().Get(method); ok {
			return v, true
		}
	}
	return 0, false
}

// SegmentTime is split_time(index) minus the most recent earlier recorded
// split, or split_time(index) itself if there is none.
func SegmentTime(r *run.Run, index int, method timespan.TimingMethod) (timespan.TimeSpan, bool) {
	cur, ok := r.Segment(index).SplitTime().Get(method)
	if !ok {
		return 0, false
	}
	if prev, ok := PrevNonEmptySplit(r, index, method); ok {
		return cur.Sub(prev), true
	}
	return cur, true
}

// LiveSegmentTime substitutes liveTime for the (not yet recorded) split at
// index, for an in-progress segment.
func LiveSegmentTime(r *run.Run, index int, method timespan.TimingMethod, liveTime timespan.TimeSpan) timespan.TimeSpan {
	if prev, ok := PrevNonEmptySplit(r, index, method); ok {
		return liveTime.Sub(prev)
	}
	return liveTime
}

// comparisonSplitAt returns the comparison's split value at index, if any.
func comparisonSplitAt(r *run.Run, index int, cmp string, method timespan.TimingMethod) (timespan.TimeSpan, bool) {
	t, ok := r.Segment(index).Comparison(cmp)
	if !ok {
		return 0, false
	}
	return t.Get(method)
}

// ComparisonCombinedSegmentTime is the comparison's segment time at index:
// its split at index minus the most recent prior non-empty comparison
// split, or 0 if none. "Best Segments" reads best_segment_time directly
// instead of differencing its own (cumulative) comparison column.
func ComparisonCombinedSegmentTime(r *run.Run, index int, cmp string, method timespan.TimingMethod) (timespan.TimeSpan, bool) {
	if cmp == BestSegmentsName {
		return r.Segment(index).BestSegmentTime().Get(method)
	}
	cur, ok := comparisonSplitAt(r, index, cmp, method)
	if !ok {
		return 0, false
	}
	for i := index - 1; i >= 0; i-- {
		if prev, ok := comparisonSplitAt(r, i, cmp, method); ok {
			return cur.Sub(prev), true
		}
	}
	return cur, true
}

// SegmentDelta is segment_time(index) minus the comparison's segment time
// at index (_segment_delta).
func SegmentDelta(r *run.Run, index int, cmp string, method timespan.TimingMethod) (timespan.TimeSpan, bool) {
	st, ok := SegmentTime(r, index, method)
	if !ok {
		return 0, false
	}
	cst, ok := ComparisonCombinedSegmentTime(r, index, cmp, method)
	if !ok {
		return 0, false
	}
	return st.Sub(cst), true
}

// LiveSegmentDelta is the live-running analogue of SegmentDelta.
func LiveSegmentDelta(r *run.Run, index int, cmp string, method timespan.TimingMethod, liveTime timespan.TimeSpan) (timespan.TimeSpan, bool) {
	cst, ok := ComparisonCombinedSegmentTime(r, index, cmp, method)
	if !ok {
		return 0, false
	}
	return LiveSegmentTime(r, index, method, liveTime).Sub(cst), true
}

// CheckBestSegment reports whether the segment at index currently qualifies
// as a new best segment: its segment time beats the stored
// best_segment_time (an absent best counts as beaten), or its delta against
// Best Segments is negative.
func CheckBestSegment(r *run.Run, index int, method timespan.TimingMethod) bool {
	st, ok := SegmentTime(r, index, method)
	if !ok {
		return false
	}
	best, bok := r.Segment(index).BestSegmentTime().Get(method)
	if !bok || st < best {
		return true
	}
	if delta, ok := SegmentDelta(r, index, BestSegmentsName, method); ok && delta < 0 {
		return true
	}
	return false
}

// CheckLiveDelta decides whether a delta should currently be shown, per
//'s three-way disjunction.
func CheckLiveDelta(splitDeltaMode bool, nowExceedsComparisonSplit bool, liveSegmentTime timespan.TimeSpan, best timespan.TimeSpan, bestKnown bool, bestDelta timespan.TimeSpan, comparisonDelta timespan.TimeSpan) bool {
	if splitDeltaMode && nowExceedsComparisonSplit {
		return true
	}
	if bestKnown && liveSegmentTime > best && bestDelta > 0 {
		return true
	}
	if comparisonDelta > 0 {
		return true
	}
	return false
}

// SplitColor is the decision-tree result from
type SplitColor int

const (
	Default SplitColor = iota
	BestSegment
	AheadGainingTime
	AheadLosingTime
	BehindGainingTime
	BehindLosingTime
)

func (c SplitColor) String() string {
	switch c {
	case BestSegment:
		return "BestSegment"
	case AheadGainingTime:
		return "AheadGainingTime"
	case AheadLosingTime:
		return "AheadLosingTime"
	case BehindGainingTime:
		return "BehindGainingTime"
	case BehindLosingTime:
		return "BehindLosingTime"
	default:
		return "Default"
	}
}

// ComputeSplitColor implements's split_color decision tree:
// BestSegment wins over everything; otherwise ahead/behind follows delta's
// sign and gaining/losing compares delta against the previous segment's
// last non-empty delta.
func ComputeSplitColor(isBestSegment bool, delta timespan.TimeSpan, hasDelta bool, prevDelta timespan.TimeSpan, hasPrevDelta bool) SplitColor {
	if isBestSegment {
		return BestSegment
	}
	if !hasDelta {
		return Default
	}
	ahead := delta < 0
	gaining := !hasPrevDelta || delta < prevDelta
	switch {
	case ahead && gaining:
		return AheadGainingTime
	case ahead && !gaining:
		return AheadLosingTime
	case !ahead && gaining:
		return BehindGainingTime
	default:
		return BehindLosingTime
	}
}

// BestSegmentsName is the reserved comparison name backed directly by
// best_segment_time rather than an independently-maintained column.
const BestSegmentsName = "Best Segments"

// combinedSpan is one history-derived edge in the sum-of-best graph: a
// recorded time spanning from-segment (exclusive) to to-segment
// (inclusive).
type combinedSpan struct {
	from, to int
	time timespan.TimeSpan
}

// SumOfBest computes, for every segment index, the minimum cumulative time
// reachable from the start via a single forward relaxation sweep: each
// segment's best_segment_time is one edge, and every recorded "combined"
// history span (a gap where an intervening segment was skipped) is another.
func SumOfBest(r *run.Run, method timespan.TimingMethod) []timespan.TimeSpan {
	n := r.SegmentCount()
	cumulative := make([]timespan.TimeSpan, n)
	reached := make([]bool, n)

	spans := collectCombinedSpans(r, method)

	for i := 0; i < n; i++ {
		bestForI := timespan.TimeSpan(0)
		foundAny := false
		// Direct edge: previous cumulative + this segment's best.
		if best, ok := r.Segment(i).BestSegmentTime().Get(method); ok && (i == 0 || reached[i-1]) {
			prevCum := timespan.TimeSpan(0)
			if i > 0 {
				prevCum = cumulative[i-1]
			}
			cand := prevCum.Add(best)
			if !foundAny || cand < bestForI {
				bestForI = cand
				foundAny = true
			}
		}
		for _, sp := range spans {
			if sp.to != i {
				continue
			}
			prevCum := timespan.TimeSpan(0)
			if sp.from >= 0 {
				if !reached[sp.from] {
					continue
				}
				prevCum = cumulative[sp.from]
			}
			cand := prevCum.Add(sp.time)
			if !foundAny || cand < bestForI {
				bestForI = cand
				foundAny = true
			}
		}
		if foundAny {
			cumulative[i] = bestForI
			reached[i] = true
		}
	}
	return cumulative
}

// collectCombinedSpans scans every segment's history for entries that
// represent a multi-segment combined time (i.e. some intervening segment in
// the same attempt has no recorded entry), producing a from-exclusive,
// to-inclusive span for the relaxation sweep.
func collectCombinedSpans(r *run.Run, method timespan.TimingMethod) []combinedSpan {
	n := r.SegmentCount()
	var spans []combinedSpan
	// prevIdx[attemptIndex] = most recent segment index at which that
	// attempt had a recorded history entry, used to find the combined
	// span's start for each subsequent entry of the same attempt.
	prevIdx := make(map[int32]int)
	for i := 0; i < n; i++ {
		s := r.Segment(i)
		s.History().IterIndexOrder(func(attemptIdx int32, t timespan.Time) {
			v, ok := t.Get(method)
			if !ok {
				return
			}
			from, hasPrev := prevIdx[attemptIdx]
			if !hasPrev {
				from = -1
			}
			if i-from > 1 {
				spans = append(spans, combinedSpan{from: from, to: i, time: v})
			}
			prevIdx[attemptIdx] = i
		})
	}
	return spans
}

// PossibleTimeSave is the chosen comparison's segment time at index minus
// that segment's best_segment_time: how much time remains to be gained at
// this segment relative to the chosen comparison.
func PossibleTimeSave(r *run.Run, index int, cmp string, method timespan.TimingMethod) (timespan.TimeSpan, bool) {
	best, ok := r.Segment(index).BestSegmentTime().Get(method)
	if !ok {
		return 0, false
	}
	cst, ok := ComparisonCombinedSegmentTime(r, index, cmp, method)
	if !ok {
		return 0, false
	}
	return cst.Sub(best), true
}

// SegmentHasAnyHistory is a tiny guard used by callers that want to skip
// segments never attempted; exported for reuse by cleaner/comparison.
func SegmentHasAnyHistory(s *segment.Segment) bool {
	return s.History().Len() > 0
}
