package timer

import (
	"testing"

	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

func TestStartSplitReachesEnded(t *testing.T) {
	r := run.New("A", "B")
	tm := New(r)
	if _, err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	if tm.Phase() != Running {
		t.Fatalf("phase = %v, want Running", tm.Phase())
	}
	if _, err := tm.Start(); err != ErrRunAlreadyInProgress {
		t.Fatalf("double start: got %v, want ErrRunAlreadyInProgress", err)
	}
	if _, err := tm.Split(); err != nil {
		t.Fatal(err)
	}
	if tm.CurrentSplitIndex() != 1 {
		t.Fatalf("split index = %d, want 1", tm.CurrentSplitIndex())
	}
	if _, err := tm.Split(); err != nil {
		t.Fatal(err)
	}
	if tm.Phase() != Ended {
		t.Fatalf("phase = %v, want Ended", tm.Phase())
	}
}

func TestPauseResumeExcludesElapsedTime(t *testing.T) {
	r := run.New("A")
	tm := New(r)
	tm.Start()
	if _, err := tm.Pause(); err != nil {
		t.Fatal(err)
	}
	if tm.Phase() != Paused {
		t.Fatal("expected Paused")
	}
	if _, err := tm.Pause(); err != ErrAlreadyPaused {
		t.Fatalf("double pause: got %v", err)
	}
	if _, err := tm.Split(); err != ErrNotPaused {
		t.Fatalf("split while paused: got %v, want ErrNotPaused", err)
	}
	if _, err := tm.Resume(); err != nil {
		t.Fatal(err)
	}
	if tm.Phase() != Running {
		t.Fatal("expected Running after resume")
	}
}

func TestCantSkipLastSplit(t *testing.T) {
	r := run.New("Only")
	tm := New(r)
	tm.Start()
	if _, err := tm.SkipSplit(); err != ErrCantSkipLastSplit {
		t.Fatalf("got %v, want ErrCantSkipLastSplit", err)
	}
}

func TestCantUndoFirstSplit(t *testing.T) {
	r := run.New("A", "B")
	tm := New(r)
	tm.Start()
	if _, err := tm.UndoSplit(); err != ErrCantUndoFirstSplit {
		t.Fatalf("got %v, want ErrCantUndoFirstSplit", err)
	}
}

func TestUndoSplitFromEndedReopensLastSegment(t *testing.T) {
	r := run.New("A", "B")
	tm := New(r)
	tm.Start()
	tm.Split()
	tm.Split()
	if tm.Phase() != Ended {
		t.Fatal("expected Ended")
	}
	if _, err := tm.UndoSplit(); err != nil {
		t.Fatal(err)
	}
	if tm.Phase() != Running {
		t.Fatalf("phase after undo from Ended = %v, want Running", tm.Phase())
	}
	if tm.CurrentSplitIndex() != 1 {
		t.Fatalf("split index = %d, want 1", tm.CurrentSplitIndex())
	}
}

func TestGameTimeLifecycle(t *testing.T) {
	r := run.New("A")
	tm := New(r)
	tm.Start()
	if _, err := tm.PauseGameTime(); err != ErrGameTimeNotInitialized {
		t.Fatalf("pause before init: got %v", err)
	}
	if _, err := tm.InitializeGameTime(); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.InitializeGameTime(); err != ErrGameTimeAlreadyInitialized {
		t.Fatalf("double init: got %v", err)
	}
	if _, err := tm.SetGameTime(timespan.FromSeconds(10)); err != nil {
		t.Fatal(err)
	}
	cur := tm.CurrentTime()
	v, ok := cur.Get(timespan.GameTime)
	if !ok {
		t.Fatal("expected game time present")
	}
	if v < timespan.FromSeconds(9) || v > timespan.FromSeconds(11) {
		t.Errorf("game time = %v, want ~10s", v)
	}
	if _, err := tm.PauseGameTime(); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.PauseGameTime(); err != ErrGameTimeAlreadyPaused {
		t.Fatalf("double pause game time: got %v", err)
	}
	if _, err := tm.ResumeGameTime(); err != nil {
		t.Fatal(err)
	}
}

func TestResetSavesAttemptOnImprovedPB(t *testing.T) {
	r := run.New("A")
	tm := New(r)
	tm.Start()
	tm.Split()
	if _, err := tm.Reset(nil); err != nil {
		t.Fatal(err)
	}
	if len(r.AttemptHistory()) != 1 {
		t.Fatalf("attempt history len = %d, want 1", len(r.AttemptHistory()))
	}
	if tm.Phase() != NotRunning {
		t.Fatal("expected NotRunning after reset")
	}
}

func TestResetDiscardsWhenExplicitlyToldNotToSave(t *testing.T) {
	r := run.New("A")
	tm := New(r)
	tm.Start()
	tm.Split()
	no := false
	if _, err := tm.Reset(&no); err != nil {
		t.Fatal(err)
	}
	if len(r.AttemptHistory()) != 0 {
		t.Fatalf("attempt history len = %d, want 0", len(r.AttemptHistory()))
	}
}

func TestToggleTimingMethod(t *testing.T) {
	r := run.New("A")
	tm := New(r)
	if tm.CurrentTimingMethod() != timespan.RealTime {
		t.Fatal("expected RealTime default")
	}
	tm.ToggleTimingMethod()
	if tm.CurrentTimingMethod() != timespan.GameTime {
		t.Fatal("expected GameTime after toggle")
	}
}

// TestResetSavePBSplitsAreMonotonic drives the exact sequence from the
// monotonic-split-times scenario: segments A/B/C, no PB yet, game time
// forced to 5s/15s/10s across three splits. The third split's 10s is lower
// than the second split's 15s, so it must not pull segment(2)'s new PB
// split back down.
func TestResetSavePBSplitsAreMonotonic(t *testing.T) {
	r := run.New("A", "B", "C")
	tm := New(r)
	tm.Start()
	if _, err := tm.InitializeGameTime(); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.PauseGameTime(); err != nil {
		t.Fatal(err)
	}
	for _, gt := range []float64{5, 15, 10} {
		if _, err := tm.SetGameTime(timespan.FromSeconds(gt)); err != nil {
			t.Fatal(err)
		}
		if _, err := tm.Split(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tm.Reset(nil); err != nil {
		t.Fatal(err)
	}

	want := []timespan.TimeSpan{timespan.FromSeconds(5), timespan.FromSeconds(15), timespan.FromSeconds(15)}
	for i, w := range want {
		v, ok := r.Segment(i).PersonalBestSplitTime().Get(timespan.GameTime)
		if !ok {
			t.Fatalf("segment(%d) personal_best_split_time.game_time absent, want %v", i, w)
		}
		if v != w {
			t.Errorf("segment(%d) personal_best_split_time.game_time = %v, want %v", i, v, w)
		}
	}
}

// TestResetImportsPersonalBestIntoSegmentHistory drives a Run that already
// carries a PB (game time splits 5s/10s/15s) through its first-ever saved
// attempt (4s/9s/13s) and checks that saveAttemptLocked seeded the -1
// "imported PB" history entries, skipping segment 1 since its real segment
// time there happens to equal the PB-derived one.
func TestResetImportsPersonalBestIntoSegmentHistory(t *testing.T) {
	r := run.New("A", "B", "C")
	r.Segment(0).SetPersonalBestSplitTime(timespan.Single(timespan.GameTime, timespan.FromSeconds(5)))
	r.Segment(1).SetPersonalBestSplitTime(timespan.Single(timespan.GameTime, timespan.FromSeconds(10)))
	r.Segment(2).SetPersonalBestSplitTime(timespan.Single(timespan.GameTime, timespan.FromSeconds(15)))

	tm := New(r)
	tm.Start()
	if _, err := tm.InitializeGameTime(); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.PauseGameTime(); err != nil {
		t.Fatal(err)
	}
	for _, gt := range []float64{4, 9, 13} {
		if _, err := tm.SetGameTime(timespan.FromSeconds(gt)); err != nil {
			t.Fatal(err)
		}
		if _, err := tm.Split(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tm.Reset(nil); err != nil {
		t.Fatal(err)
	}

	get := func(i int, idx int32) (timespan.TimeSpan, bool) {
		v, ok := r.Segment(i).History().Get(idx)
		if !ok {
			return 0, false
		}
		return v.Get(timespan.GameTime)
	}

	if v, ok := get(0, -1); !ok || v != timespan.FromSeconds(5) {
		t.Fatalf("segment(0).history[-1] = %v, %v, want 5s", v, ok)
	}
	if v, ok := get(0, 1); !ok || v != timespan.FromSeconds(4) {
		t.Fatalf("segment(0).history[1] = %v, %v, want 4s", v, ok)
	}

	if _, ok := get(1, -1); ok {
		t.Fatal("segment(1).history[-1] should be absent: real entry matches PB-derived time")
	}
	if v, ok := get(1, 1); !ok || v != timespan.FromSeconds(5) {
		t.Fatalf("segment(1).history[1] = %v, %v, want 5s (9-4)", v, ok)
	}

	if v, ok := get(2, -1); !ok || v != timespan.FromSeconds(5) {
		t.Fatalf("segment(2).history[-1] = %v, %v, want 5s (15-10)", v, ok)
	}
	if v, ok := get(2, 1); !ok || v != timespan.FromSeconds(4) {
		t.Fatalf("segment(2).history[1] = %v, %v, want 4s (13-9)", v, ok)
	}
}

func TestListenersSeeEventsInOrder(t *testing.T) {
	r := run.New("A")
	tm := New(r)
	var seen []Event
	tm.AddListener(func(e Event) { seen = append(seen, e) })
	tm.Start()
	tm.Split()
	if len(seen) != 2 || seen[0] != EventStarted || seen[1] != EventSplitted {
		t.Fatalf("events = %v, want [Started Splitted]", seen)
	}
}
