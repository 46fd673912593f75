package persist

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"splitcore.dev/splitcore/imagecache"
	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

func rt(seconds float64) timespan.Time {
	return timespan.Single(timespan.RealTime, timespan.FromSeconds(seconds))
}

func TestFormatCompleteRendersTicks(t *testing.T) {
	// 1h2m5s plus 0.1234567s (1234567 ticks of 100ns), built from exact
	// nanoseconds to avoid float64 rounding in the assertion.
	ns := int64(3725)*int64(time.Second) + 123456700
	got := formatComplete(timespan.TimeSpan(ns))
	want := "1:02:05.1234567"
	if got != want {
		t.Fatalf("formatComplete = %q, want %q", got, want)
	}
}

func TestFormatCompleteNegative(t *testing.T) {
	got := formatComplete(timespan.FromSeconds(-5))
	if !strings.HasPrefix(got, "-") {
		t.Fatalf("formatComplete(-5s) = %q, want leading -", got)
	}
}

func TestSaveParseRoundTrip(t *testing.T) {
	r := run.New("Segment One", "Segment Two")
	r.SetGameName("Example Game")
	r.SetCategoryName("Any%")
	r.SetOffset(timespan.FromSeconds(-10))
	r.SetAttemptCount(3)
	r.Metadata().Platform = "PC"
	r.Metadata().Region = "NTSC"
	r.Metadata().Variables["Ruleset"] = "Standard"

	r.Segment(0).SetPersonalBestSplitTime(rt(30))
	r.Segment(1).SetPersonalBestSplitTime(rt(75))
	r.Segment(0).SetBestSegmentTime(rt(28))
	r.Segment(1).SetBestSegmentTime(rt(40))
	r.Segment(0).History().Set(1, rt(31))
	r.Segment(1).History().Set(1, rt(46))

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.AddAttempt(run.Attempt{Index: 1, Time: rt(105), Started: &started})

	var buf bytes.Buffer
	if err := Save(r, &buf, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.Contains(buf.String(), `version="1.8.0"`) {
		t.Fatalf("expected version 1.8.0 in output:\n%s", buf.String())
	}

	parsed, err := Parse(&buf, "test.lss", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.GameName() != "Example Game" || parsed.CategoryName() != "Any%" {
		t.Fatalf("game/category = %q/%q", parsed.GameName(), parsed.CategoryName())
	}
	if parsed.Offset() != timespan.FromSeconds(-10) {
		t.Fatalf("offset = %v, want -10s", parsed.Offset())
	}
	if parsed.AttemptCount() != 3 {
		t.Fatalf("attempt count = %d, want 3", parsed.AttemptCount())
	}
	if parsed.Metadata().Platform != "PC" || parsed.Metadata().Variables["Ruleset"] != "Standard" {
		t.Fatalf("metadata mismatch: %+v", parsed.Metadata())
	}
	pb, ok := parsed.Segment(0).Comparison("Personal Best")
	if !ok || pb != rt(30) {
		t.Fatalf("segment 0 PB = %v, %v, want 30s/true", pb, ok)
	}
	best := parsed.Segment(1).BestSegmentTime()
	if v, ok := best.Get(timespan.RealTime); !ok || v != timespan.FromSeconds(40) {
		t.Fatalf("segment 1 best = %v, %v, want 40s/true", v, ok)
	}
	hv, ok := parsed.Segment(1).History().Get(1)
	if !ok || hv != rt(46) {
		t.Fatalf("segment 1 history[1] = %v, %v, want 46s/true", hv, ok)
	}
	if len(parsed.AttemptHistory()) != 1 || parsed.AttemptHistory()[0].Started == nil {
		t.Fatalf("expected one attempt with a started time, got %+v", parsed.AttemptHistory())
	}
}

func TestEncodeDecodeIconRoundTrip(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	encoded := encodeIcon(raw)
	decoded, err := decodeIcon(encoded)
	if err != nil {
		t.Fatalf("decodeIcon: %v", err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Fatalf("decodeIcon = %v, want %v", decoded, raw)
	}
}

func TestDecodeIconWithoutLegacyHeaderReturnsRawBytes(t *testing.T) {
	raw := []byte{9, 8, 7}
	encoded := base64.StdEncoding.EncodeToString(raw)
	decoded, err := decodeIcon(encoded)
	if err != nil {
		t.Fatalf("decodeIcon: %v", err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Fatalf("decodeIcon fallback = %v, want %v", decoded, raw)
	}
}

func TestSaveParseIconRoundTripThroughCache(t *testing.T) {
	r := run.New("A")
	cache := imagecache.New()
	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	id := imagecache.HashBytes(raw)
	_, _ = cache.Cache(id, func() ([]byte, error) { return raw, nil })
	r.Segment(0).SetIcon(id)

	var buf bytes.Buffer
	if err := Save(r, &buf, cache); err != nil {
		t.Fatalf("Save: %v", err)
	}

	parsedCache := imagecache.New()
	parsed, err := Parse(&buf, "test.lss", parsedCache)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Segment(0).Icon().IsZero() {
		t.Fatal("expected segment icon to be set after round trip")
	}
	if parsed.Segment(0).Icon() != id {
		t.Fatalf("icon id = %x, want %x", parsed.Segment(0).Icon(), id)
	}
}
