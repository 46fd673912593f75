package analysis

import (
	"testing"

	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

func rt(seconds float64) timespan.Time {
	return timespan.Single(timespan.RealTime, timespan.FromSeconds(seconds))
}

func TestSegmentTimeNoPriorSplit(t *testing.T) {
	r := run.New("A", "B")
	r.Segment(0).SetSplitTime(rt(5))
	st, ok := SegmentTime(r, 0, timespan.RealTime)
	if !ok || st != timespan.FromSeconds(5) {
		t.Fatalf("segment time = %v, %v, want 5s/true", st, ok)
	}
}

func TestSegmentTimeWithPriorSplit(t *testing.T) {
	r := run.New("A", "B")
	r.Segment(0).SetSplitTime(rt(5))
	r.Segment(1).SetSplitTime(rt(12))
	st, ok := SegmentTime(r, 1, timespan.RealTime)
	if !ok || st != timespan.FromSeconds(7) {
		t.Fatalf("segment time = %v, %v, want 7s/true", st, ok)
	}
}

func TestCheckBestSegmentAbsentBestCountsAsBeaten(t *testing.T) {
	r := run.New("A")
	r.Segment(0).SetSplitTime(rt(10))
	if !CheckBestSegment(r, 0, timespan.RealTime) {
		t.Fatal("expected absent best to count as beaten")
	}
}

func TestComputeSplitColorBestSegmentWins(t *testing.T) {
	c := ComputeSplitColor(true, timespan.FromSeconds(5), true, 0, false)
	if c != BestSegment {
		t.Fatalf("color = %v, want BestSegment", c)
	}
}

func TestComputeSplitColorAheadGaining(t *testing.T) {
	c := ComputeSplitColor(false, timespan.FromSeconds(-2), true, timespan.FromSeconds(-1), true)
	if c != AheadGainingTime {
		t.Fatalf("color = %v, want AheadGainingTime", c)
	}
}

func TestComputeSplitColorBehindLosing(t *testing.T) {
	c := ComputeSplitColor(false, timespan.FromSeconds(3), true, timespan.FromSeconds(1), true)
	if c != BehindLosingTime {
		t.Fatalf("color = %v, want BehindLosingTime", c)
	}
}

func TestSumOfBestSimpleChain(t *testing.T) {
	r := run.New("A", "B", "C")
	r.Segment(0).SetBestSegmentTime(rt(4))
	r.Segment(1).SetBestSegmentTime(rt(5))
	r.Segment(2).SetBestSegmentTime(rt(6))
	sob := SumOfBest(r, timespan.RealTime)
	want := []timespan.TimeSpan{timespan.FromSeconds(4), timespan.FromSeconds(9), timespan.FromSeconds(15)}
	for i, w := range want {
		if sob[i] != w {
			t.Errorf("sob[%d] = %v, want %v", i, sob[i], w)
		}
	}
}

func TestSumOfBestUsesCombinedSpanWhenBetter(t *testing.T) {
	r := run.New("A", "B", "C")
	r.Segment(0).SetBestSegmentTime(rt(4))
	r.Segment(1).SetBestSegmentTime(rt(100)) // very slow individually
	r.Segment(2).SetBestSegmentTime(rt(6))
	// Attempt 1 skipped segment 1; combined span from segment0->segment2 = 8s, beating 100+6.
	r.Segment(2).History().Set(1, rt(8))
	r.Segment(0).History().Set(1, rt(4))
	sob := SumOfBest(r, timespan.RealTime)
	want := timespan.FromSeconds(12) // 4 (seg0) + 8 (combined span covering seg1+seg2)
	if sob[2] != want {
		t.Errorf("sob[2] = %v, want %v (combined span should win)", sob[2], want)
	}
}

func TestPossibleTimeSave(t *testing.T) {
	r := run.New("A")
	r.Segment(0).SetBestSegmentTime(rt(4))
	r.Segment(0).SetComparison("Personal Best", rt(6)) // PB took 6s at this segment; best ever was 4s
	save, ok := PossibleTimeSave(r, 0, "Personal Best", timespan.RealTime)
	if !ok || save != timespan.FromSeconds(2) {
		t.Fatalf("possible time save = %v, %v, want 2s/true", save, ok)
	}
}
