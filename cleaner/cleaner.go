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

// Package cleaner surfaces sum-of-best "clean up" suggestions: history
// entries that, if removed, would let Combined Best Segments improve.
package cleaner // import "splitcore.dev/splitcore/cleaner"

import (
	"fmt"

	"splitcore.dev/splitcore/analysis"
	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

// IterationBudget bounds how many (method, segment, history-entry) triples
// Suggestions scans before returning, configurable via the config package.
var IterationBudget = 10000

// Suggestion is one potential clean-up: removing AttemptIndex from
// Segment's history would beat the current Combined Best Segments time.
type Suggestion struct {
	Method timespan.TimingMethod
	SegmentIndex int
	AttemptIndex int32
	PredictedTime timespan.TimeSpan
	CurrentBest timespan.TimeSpan
	Rationale string
}

// Find scans every (timing_method, segment_index, history_entry) triple and
// returns the entries whose removal would strictly improve the sum-of-best
// at that segment
func Find(r *run.Run) []Suggestion {
	var out []Suggestion
	scanned := 0
	for _, method := range []timespan.TimingMethod{timespan.RealTime, timespan.GameTime} {
		sob := analysis.SumOfBest(r, method)
		for segIdx := 0; segIdx < r.SegmentCount(); segIdx++ {
			if scanned >= IterationBudget {
				return out
			}
			currentBest := timespan.TimeSpan(0)
			if segIdx < len(sob) {
				currentBest = sob[segIdx]
			}
			var entries []int32
			r.Segment(segIdx).History().IterIndexOrder(func(idx int32, _ timespan.Time) {
				entries = append(entries, idx)
			})
			for _, attemptIdx := range entries {
				scanned++
				if scanned > IterationBudget {
					return out
				}
				predicted := predictWithoutEntry(r, method, segIdx, attemptIdx, sob)
				if predicted < currentBest {
					out = append(out, Suggestion{
						Method: method,
						SegmentIndex: segIdx,
						AttemptIndex: attemptIdx,
						PredictedTime: predicted,
						CurrentBest: currentBest,
						Rationale: rationale(r, segIdx, attemptIdx, method, predicted, currentBest),
					})
				}
			}
		}
	}
	return out
}

// predictWithoutEntry estimates the new Combined Best Segments time at
// segIdx if the (segIdx, attemptIdx) history entry were removed. When the
// removed entry is not below the stored best_segment_time, the prediction is
// the best remaining recorded time at segIdx under method, added to the
// sum-of-best at segIdx-1 (or alone at segIdx 0). Otherwise, or when no
// other entry remains, it is the existing sum-of-best at segIdx.
func predictWithoutEntry(r *run.Run, method timespan.TimingMethod, segIdx int, attemptIdx int32, sob []timespan.TimeSpan) timespan.TimeSpan {
	removed, ok := r.Segment(segIdx).History().Get(attemptIdx)
	if !ok {
		return sob[segIdx]
	}
	removedVal, ok := removed.Get(method)
	if !ok {
		return sob[segIdx]
	}
	best, bestOK := r.Segment(segIdx).BestSegmentTime().Get(method)
	if bestOK && best < removedVal {
		// The stored best_segment_time wasn't this entry; removing the
		// entry can't change anything.
		return sob[segIdx]
	}
	// Find the next-best remaining recorded time at this segment.
	var second timespan.TimeSpan
	haveSecond := false
	r.Segment(segIdx).History().IterIndexOrder(func(idx int32, t timespan.Time) {
		if idx == attemptIdx {
			return
		}
		v, ok := t.Get(method)
		if !ok {
			return
		}
		if !haveSecond || v < second {
			second = v
			haveSecond = true
		}
	})
	if !haveSecond {
		return sob[segIdx]
	}
	if segIdx == 0 {
		return second
	}
	return sob[segIdx-1].Add(second)
}

func rationale(r *run.Run, segIdx int, attemptIdx int32, method timespan.TimingMethod, predicted, current timespan.TimeSpan) string {
	return fmt.Sprintf(
		"removing segment %q's attempt %d entry (%s) would improve Combined Best Segments at this point from %s to %s",
		r.Segment(segIdx).Name(), attemptIdx, method, current, predicted,
	)
}

// Apply removes exactly the one (segment_index, attempt_index) entry the
// Suggestion names.
func Apply(r *run.Run, s Suggestion) {
	r.Segment(s.SegmentIndex).History().Remove(s.AttemptIndex)
	r.MarkModified()
}
