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

// Package skillcurve builds the per-segment weighted percentile curve used
// for Balanced PB and "PB chance", the same empirical-CDF shape
// fortio's stats.HistogramData.Percentile interpolates over, generalized
// here from uniform-bucket-weight histograms to per-sample exponential
// recency weights.
package skillcurve // import "splitcore.dev/splitcore/skillcurve"

import (
	"sort"

	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

// DecayWeight is W in w_k = W^k, configurable via the config package.
var DecayWeight = 0.75

// BalancedPBIterationBudget bounds the binary search in Solve.
var BalancedPBIterationBudget = 50

// Percentiles is the default set of curve points Distribution reports,
// configurable via persist.Settings (the config package does not set it).
var Percentiles = []float64{0.25, 0.5, 0.75, 0.9, 0.99}

// HistogramResolution is the number of equal-width buckets Distribution
// spreads a segment's recorded times across.
var HistogramResolution = 20

// sample is one (cumulative weight, time) point on the empirical CDF.
type sample struct {
	weight float64
	time timespan.TimeSpan
}

// Curve is the weighted CDF for a single segment: Query(p) interpolates
// between the two samples surrounding weight p.
type Curve struct {
	samples []sample
}

// Build constructs the Curve for segment index seg under method. entries
// must be in chronological order (oldest first); the most recent entry
// gets the least decay (k=0).
func Build(r *run.Run, segIdx int, method timespan.TimingMethod) Curve {
	times := collectSegmentTimes(r, segIdx, method)
	n := len(times)
	if n == 0 {
		return Curve{}
	}
	type weighted struct {
		time timespan.TimeSpan
		weight float64
	}
	ws := make([]weighted, n)
	for i, t := range times {
		k := n - 1 - i // most recent (last in chronological order) has k=0
		ws[i] = weighted{time: t, weight: pow(DecayWeight, k)}
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i].time < ws[j].time })

	cum := 0.0
	cumulative := make([]float64, n)
	for i, w := range ws {
		cum += w.weight
		cumulative[i] = cum
	}
	min, max := cumulative[0], cumulative[n-1]
	samples := make([]sample, n)
	for i, w := range ws {
		scaled := 0.0
		if max > min {
			scaled = (cumulative[i] - min) / (max - min)
		}
		samples[i] = sample{weight: scaled, time: w.time}
	}
	return Curve{samples: samples}
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// collectSegmentTimes gathers every recorded segment time for segIdx,
// rejecting an entry whose previous segment has no time for the same
// attempt (— it would be a combined segment masquerading
// as a single-segment time).
func collectSegmentTimes(r *run.Run, segIdx int, method timespan.TimingMethod) []timespan.TimeSpan {
	if segIdx == 0 {
		var out []timespan.TimeSpan
		r.Segment(0).History().IterIndexOrder(func(_ int32, t timespan.Time) {
			if v, ok := t.Get(method); ok {
				out = append(out, v)
			}
		})
		return out
	}
	prev := r.Segment(segIdx - 1).History()
	var out []timespan.TimeSpan
	r.Segment(segIdx).History().IterIndexOrder(func(idx int32, t timespan.Time) {
		if _, ok := prev.Get(idx); !ok {
			return // combined segment, reject
		}
		if v, ok := t.Get(method); ok {
			out = append(out, v)
		}
	})
	return out
}

// Query interpolates the curve at percentile p, saturating for p outside
// [0, 1].
func (c Curve) Query(p float64) timespan.TimeSpan {
	if len(c.samples) == 0 {
		return 0
	}
	if p <= c.samples[0].weight {
		return c.samples[0].time
	}
	last := c.samples[len(c.samples)-1]
	if p >= last.weight {
		return last.time
	}
	for i := 1; i < len(c.samples); i++ {
		lo, hi := c.samples[i-1], c.samples[i]
		if p <= hi.weight {
			if hi.weight == lo.weight {
				return hi.time
			}
			frac := (p - lo.weight) / (hi.weight - lo.weight)
			delta := float64(hi.time-lo.time) * frac
			return lo.time + timespan.TimeSpan(delta)
		}
	}
	return last.time
}

// BuildAll builds one Curve per segment.
func BuildAll(r *run.Run, method timespan.TimingMethod) []Curve {
	n := r.SegmentCount()
	curves := make([]Curve, n)
	for i := 0; i < n; i++ {
		curves[i] = Build(r, i, method)
	}
	return curves
}

// Distribution reports, for one segment's Curve, the TimeSpan at each of
// Percentiles and a HistogramResolution-bucket count of the underlying
// samples — diagnostic output for a host UI, the same shape fortio's
// stats.HistogramData.Percentile/Counters expose for periodic run
// latencies, generalized here to the curve's weighted samples.
func (c Curve) Distribution() (percentiles map[float64]timespan.TimeSpan, buckets []int) {
	percentiles = make(map[float64]timespan.TimeSpan, len(Percentiles))
	for _, p := range Percentiles {
		percentiles[p] = c.Query(p)
	}
	if len(c.samples) == 0 || HistogramResolution <= 0 {
		return percentiles, nil
	}
	min, max := c.samples[0].time, c.samples[len(c.samples)-1].time
	buckets = make([]int, HistogramResolution)
	span := float64(max - min)
	for _, s := range c.samples {
		idx := 0
		if span > 0 {
			idx = int(float64(s.time-min) / span * float64(HistogramResolution))
			if idx >= HistogramResolution {
				idx = HistogramResolution - 1
			}
		}
		buckets[idx]++
	}
	return percentiles, buckets
}

// Solve binary-searches p in [0, 1] such that the sum of every segment
// curve's Query(p) equals target, within BalancedPBIterationBudget
// iterations. Returns the per-segment cumulative
// split times and the converged p ("PB chance").
func Solve(curves []Curve, target timespan.TimeSpan) (splits []timespan.TimeSpan, pbChance float64) {
	lo, hi := 0.0, 1.0
	var mid float64
	for i := 0; i < BalancedPBIterationBudget; i++ {
		mid = (lo + hi) / 2
		total := sumAt(curves, mid)
		switch {
		case total == target:
			lo, hi = mid, mid
			goto done
		case total < target:
			// Each curve is a CDF: larger p always reaches a slower (or
			// equal) sample, so the cumulative total is monotonically
			// non-decreasing in p. Too-small a total means p must grow.
			lo = mid
		default:
			hi = mid
		}
	}
done:
	pbChance = (lo + hi) / 2
	return cumulativeSplitsAt(curves, pbChance), pbChance
}

func sumAt(curves []Curve, p float64) timespan.TimeSpan {
	var total timespan.TimeSpan
	for _, c := range curves {
		total = total.Add(c.Query(p))
	}
	return total
}

func cumulativeSplitsAt(curves []Curve, p float64) []timespan.TimeSpan {
	out := make([]timespan.TimeSpan, len(curves))
	var running timespan.TimeSpan
	for i, c := range curves {
		running = running.Add(c.Query(p))
		out[i] = running
	}
	return out
}
