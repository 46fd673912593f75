package clock

import (
	"testing"
	"time"

	"splitcore.dev/splitcore/timespan"
)

func TestSubAndAdd(t *testing.T) {
	a := Now()
	time.Sleep(5 * time.Millisecond)
	b := Now()
	diff := b.Sub(a)
	if diff <= 0 {
		t.Fatalf("expected positive elapsed span, got %v", diff)
	}
	back := b.Add(diff.Neg())
	if back.Sub(a) != 0 && (back.Sub(a) > timespan.FromMilliseconds(1) || back.Sub(a) < -timespan.FromMilliseconds(1)) {
		t.Errorf("Add/Sub not inverse enough: %v", back.Sub(a))
	}
}

func TestZero(t *testing.T) {
	var i Instant
	if !i.IsZero() {
		t.Errorf("zero value should report IsZero")
	}
}
