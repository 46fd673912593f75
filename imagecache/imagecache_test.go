package imagecache

import "testing"

func TestCacheBuildsOnce(t *testing.T) {
	c := New()
	id := HashBytes([]byte("hello"))
	calls := 0
	build := func() ([]byte, error) {
		calls++
		return []byte("hello"), nil
	}
	for i := 0; i < 3; i++ {
		if _, err := c.Cache(id, build); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("expected build called once, got %d", calls)
	}
}

func TestGCRetentionFloor(t *testing.T) {
	c := New()
	build := func(b []byte) func() ([]byte, error) {
		return func() ([]byte, error) { return b, nil }
	}
	// 10 entries, each marked visited by its inserting Cache call.
	for i := 0; i < 10; i++ {
		id := HashBytes([]byte{byte(i)})
		if _, err := c.Cache(id, build([]byte{byte(i)})); err != nil {
			t.Fatal(err)
		}
	}
	kept, evicted := c.GC()
	// floor = 2*10+5 = 25 >= 10 entries, so the sweep keeps all of them.
	_ = evicted
	if kept < 5 {
		t.Errorf("expected retention floor respected, kept=%d", kept)
	}
}
