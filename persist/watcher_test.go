package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"splitcore.dev/splitcore/timer"
)

type recordingSink struct {
	events chan timer.Event
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(chan timer.Event, 8)}
}

func (s *recordingSink) OnEvent(e timer.Event) {
	s.events <- e
}

func TestWatcherNotifiesOnSettingsWrite(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.toml")
	if err := SaveSettings(settingsPath, DefaultSettings()); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	sink := newRecordingSink()
	w, err := NewWatcher(settingsPath, "", sink)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	settings := DefaultSettings()
	settings.DecayWeight = 0.99
	if err := SaveSettings(settingsPath, settings); err != nil {
		t.Fatalf("SaveSettings (rewrite): %v", err)
	}

	select {
	case ev := <-sink.events:
		if ev != timer.EventReloaded {
			t.Errorf("event = %v, want EventReloaded", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload notification")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.toml")
	unrelatedPath := filepath.Join(dir, "unrelated.txt")
	if err := SaveSettings(settingsPath, DefaultSettings()); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	sink := newRecordingSink()
	w, err := NewWatcher(settingsPath, "", sink)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(unrelatedPath, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case ev := <-sink.events:
		t.Fatalf("unexpected event for unrelated file: %v", ev)
	case <-time.After(300 * time.Millisecond):
		// expected: no notification
	}
}
