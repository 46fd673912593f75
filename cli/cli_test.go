package cli

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"fortio.org/assert"

	"splitcore.dev/splitcore/imagecache"
	"splitcore.dev/splitcore/persist"
	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/timespan"
)

func TestJoinDataDir(t *testing.T) {
	cases := []struct {
		dir string
		name string
		want string
	}{
		{".", "run.lss", "run.lss"},
		{"", "run.lss", "run.lss"},
		{"/data", "run.lss", "/data/run.lss"},
		{"/data/", "run.lss", "/data/run.lss"},
	}
	for _, c := range cases {
		if err := flag.Set("data-dir", c.dir); err != nil {
			t.Fatalf("flag.Set: %v", err)
		}
		assert.Equal(t, joinDataDir(c.name), c.want, "joinDataDir with dir "+c.dir)
	}
	_ = flag.Set("data-dir", ".")
}

func TestFormatTime(t *testing.T) {
	assert.CheckEquals(t, formatTime(timespan.Time{}), "-", "empty Time should render as -")
	real := timespan.FromSeconds(12.5)
	tm := timespan.Time{}
	tm.Set(timespan.RealTime, real)
	assert.Equal(t, formatTime(tm), real.String(), "real Time should render via TimeSpan.String")
}

func TestInspectCmdPrintsSummary(t *testing.T) {
	dir := t.TempDir()
	if err := flag.Set("data-dir", dir); err != nil {
		t.Fatalf("flag.Set: %v", err)
	}
	if err := flag.Set("save-file", "run.lss"); err != nil {
		t.Fatalf("flag.Set: %v", err)
	}
	defer func() {
		_ = flag.Set("data-dir", ".")
		_ = flag.Set("save-file", "run.lss")
	}()

	r := run.New("Opening", "Closing")
	r.SetGameName("Test Game")
	r.SetCategoryName("Any%")

	f, err := os.Create(filepath.Join(dir, "run.lss"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := persist.Save(r, f, imagecache.New()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f.Close()

	stdout := os.Stdout
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	os.Stdout = pw
	inspectCmd()
	os.Stdout = stdout
	pw.Close()

	out, err := io.ReadAll(pr)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	got := string(out)
	if !bytes.Contains(out, []byte("Test Game - Any%")) {
		t.Errorf("output = %q, missing game/category line", got)
	}
	if !bytes.Contains(out, []byte("2 segments")) {
		t.Errorf("output = %q, missing segment count", got)
	}
}
