package comparison

import (
	"testing"

	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

func gt(seconds float64) timespan.Time {
	return timespan.Single(timespan.GameTime, timespan.FromSeconds(seconds))
}

func TestGeneratePersonalBestCopiesSplitTime(t *testing.T) {
	r := run.New("A")
	r.Segment(0).SetPersonalBestSplitTime(gt(5))
	GeneratePersonalBest(r)
	v, ok := r.Segment(0).Comparison(PersonalBest)
	if !ok {
		t.Fatal("expected Personal Best comparison present")
	}
	if got, _ := v.Get(timespan.GameTime); got != timespan.FromSeconds(5) {
		t.Errorf("Personal Best = %v, want 5s", got)
	}
}

func TestGenerateBestSegmentsCumulates(t *testing.T) {
	r := run.New("A", "B")
	r.Segment(0).SetBestSegmentTime(gt(4))
	r.Segment(1).SetBestSegmentTime(gt(6))
	GenerateBestSegments(r)
	v0, _ := r.Segment(0).Comparison(BestSegments)
	v1, _ := r.Segment(1).Comparison(BestSegments)
	if got, _ := v0.Get(timespan.GameTime); got != timespan.FromSeconds(4) {
		t.Errorf("segment0 = %v, want 4s", got)
	}
	if got, _ := v1.Get(timespan.GameTime); got != timespan.FromSeconds(10) {
		t.Errorf("segment1 = %v, want 10s", got)
	}
}

func TestGenerateWorstSegmentsPicksSlowest(t *testing.T) {
	r := run.New("A")
	r.Segment(0).History().Set(1, gt(4))
	r.Segment(0).History().Set(2, gt(9))
	GenerateWorstSegments(r)
	v, _ := r.Segment(0).Comparison(WorstSegments)
	if got, _ := v.Get(timespan.GameTime); got != timespan.FromSeconds(9) {
		t.Errorf("worst = %v, want 9s", got)
	}
}

func TestGenerateAverageAndMedianSegments(t *testing.T) {
	r := run.New("A")
	r.Segment(0).History().Set(1, gt(4))
	r.Segment(0).History().Set(2, gt(6))
	r.Segment(0).History().Set(3, gt(8))
	GenerateAverageSegments(r)
	GenerateMedianSegments(r)
	avg, _ := r.Segment(0).Comparison(AverageSegment)
	med, _ := r.Segment(0).Comparison(MedianSegment)
	if got, _ := avg.Get(timespan.GameTime); got != timespan.FromSeconds(6) {
		t.Errorf("average = %v, want 6s", got)
	}
	if got, _ := med.Get(timespan.GameTime); got != timespan.FromSeconds(6) {
		t.Errorf("median = %v, want 6s", got)
	}
}

func TestGenerateLatestRunUsesHighestAttemptIndex(t *testing.T) {
	r := run.New("A")
	r.Segment(0).History().Set(1, gt(4))
	r.Segment(0).History().Set(3, gt(9))
	r.Segment(0).History().Set(2, gt(6))
	GenerateLatestRun(r)
	v, _ := r.Segment(0).Comparison(LatestRun)
	if got, _ := v.Get(timespan.GameTime); got != timespan.FromSeconds(9) {
		t.Errorf("latest run = %v, want 9s (attempt index 3)", got)
	}
}

func TestRunAllIsIdempotent(t *testing.T) {
	r := run.New("A", "B")
	r.Segment(0).SetPersonalBestSplitTime(gt(5))
	r.Segment(0).SetBestSegmentTime(gt(4))
	r.Segment(1).SetBestSegmentTime(gt(6))
	r.Segment(0).History().Set(1, gt(4))
	r.Segment(1).History().Set(1, gt(7))

	RunAll(r)
	snapshot := snapshotComparisons(r)
	RunAll(r)
	again := snapshotComparisons(r)

	if len(snapshot) != len(again) {
		t.Fatalf("comparison count changed: %d vs %d", len(snapshot), len(again))
	}
	for name, vals := range snapshot {
		for i, v := range vals {
			if again[name][i] != v {
				t.Errorf("%s[%d] changed from %v to %v on second run", name, i, v, again[name][i])
			}
		}
	}
}

func snapshotComparisons(r *run.Run) map[string][]timespan.TimeSpan {
	out := make(map[string][]timespan.TimeSpan)
	for i := 0; i < r.SegmentCount(); i++ {
		r.Segment(i).Comparisons(func(name string, t timespan.Time) {
			v, _ := t.Get(timespan.GameTime)
			out[name] = append(out[name], v)
		})
	}
	return out
}

func TestGenerateBalancedPBReturnsChanceInRange(t *testing.T) {
	r := run.New("A", "B")
	r.Segment(0).History().Set(1, gt(3))
	r.Segment(0).History().Set(2, gt(5))
	r.Segment(1).History().Set(1, gt(4))
	r.Segment(1).History().Set(2, gt(6))
	chance := GenerateBalancedPB(r, timespan.GameTime, timespan.FromSeconds(9))
	if chance < 0 || chance > 1 {
		t.Errorf("pbChance = %v, want in [0,1]", chance)
	}
	if !r.HasComparison(BalancedPB) {
		t.Error("expected Balanced PB comparison registered")
	}
}
