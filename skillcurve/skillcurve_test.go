package skillcurve

import (
	"testing"

	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

func gt(seconds float64) timespan.Time {
	return timespan.Single(timespan.GameTime, timespan.FromSeconds(seconds))
}

func TestBuildRejectsCombinedSegment(t *testing.T) {
	r := run.New("A", "B")
	// Segment 1 has an entry at attempt 1, but segment 0 has none for that
	// attempt: it's a combined time and must be rejected.
	r.Segment(1).History().Set(1, gt(9))
	r.Segment(0).History().Set(2, gt(4))
	r.Segment(1).History().Set(2, gt(5))

	c := Build(r, 1, timespan.GameTime)
	if len(c.samples) != 1 {
		t.Fatalf("expected 1 accepted sample, got %d", len(c.samples))
	}
	if c.samples[0].time != timespan.FromSeconds(5) {
		t.Errorf("accepted sample = %v, want 5s", c.samples[0].time)
	}
}

func TestCurveQuerySaturates(t *testing.T) {
	r := run.New("A")
	r.Segment(0).History().Set(1, gt(3))
	r.Segment(0).History().Set(2, gt(7))
	c := Build(r, 0, timespan.GameTime)
	if c.Query(-1) != timespan.FromSeconds(3) {
		t.Errorf("Query(-1) = %v, want 3s (min)", c.Query(-1))
	}
	if c.Query(2) != timespan.FromSeconds(7) {
		t.Errorf("Query(2) = %v, want 7s (max)", c.Query(2))
	}
}

func TestDistributionReportsPercentilesAndBuckets(t *testing.T) {
	r := run.New("A")
	r.Segment(0).History().Set(1, gt(1))
	r.Segment(0).History().Set(2, gt(2))
	r.Segment(0).History().Set(3, gt(3))
	r.Segment(0).History().Set(4, gt(4))
	c := Build(r, 0, timespan.GameTime)

	percentiles, buckets := c.Distribution()
	if len(percentiles) != len(Percentiles) {
		t.Fatalf("percentiles = %d entries, want %d", len(percentiles), len(Percentiles))
	}
	if len(buckets) != HistogramResolution {
		t.Fatalf("buckets = %d, want %d", len(buckets), HistogramResolution)
	}
	total := 0
	for _, n := range buckets {
		total += n
	}
	if total != 4 {
		t.Errorf("bucket total = %d, want 4 (one per sample)", total)
	}
}

func TestSolveConvergesToTarget(t *testing.T) {
	r := run.New("A", "B")
	r.Segment(0).History().Set(1, gt(3))
	r.Segment(0).History().Set(2, gt(5))
	r.Segment(1).History().Set(1, gt(4))
	r.Segment(1).History().Set(2, gt(6))

	curves := BuildAll(r, timespan.GameTime)
	target := timespan.FromSeconds(9) // midpoint-ish: 3+4=7.. 5+6=11
	splits, pbChance := Solve(curves, target)
	if len(splits) != 2 {
		t.Fatalf("expected 2 cumulative splits, got %d", len(splits))
	}
	if pbChance < 0 || pbChance > 1 {
		t.Errorf("pbChance = %v, want in [0,1]", pbChance)
	}
	final := splits[len(splits)-1]
	diff := final - target
	if diff < 0 {
		diff = -diff
	}
	if diff > timespan.FromSeconds(1) {
		t.Errorf("final cumulative = %v, want close to target %v", final, target)
	}
}
