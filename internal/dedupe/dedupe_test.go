package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration, size int) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(ttl, size)
	c.now = clock.now
	return c, clock
}

func TestSeen_MarksFirstOccurrence(t *testing.T) {
	c, _ := newTestCache(time.Minute, 10)

	if c.Seen("msg-1") {
		t.Fatal("first sighting must be new")
	}
	if !c.Seen("msg-1") {
		t.Fatal("second sighting must be a duplicate")
	}
	if c.Seen("msg-2") {
		t.Fatal("other key must be new")
	}
}

func TestSeen_Expires(t *testing.T) {
	c, clock := newTestCache(time.Minute, 10)

	c.Seen("msg-1")
	clock.advance(30 * time.Second)
	if !c.Seen("msg-1") {
		t.Fatal("still within ttl")
	}

	// ttl counts from the first sighting, not the last
	clock.advance(31 * time.Second)
	if c.Seen("msg-1") {
		t.Fatal("expected key to expire")
	}
	if c.Len() != 1 {
		t.Fatalf("expected the re-marked key only, got %d", c.Len())
	}
}

func TestSeen_EvictsOldestAtCapacity(t *testing.T) {
	c, _ := newTestCache(time.Hour, 2)

	c.Seen("a")
	c.Seen("b")
	c.Seen("c")

	if c.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", c.Len())
	}
	if !c.Seen("c") || !c.Seen("b") {
		t.Fatal("newest keys must be kept")
	}
	if c.Seen("a") {
		t.Fatal("oldest key must have been evicted")
	}
}

func TestSeen_Disabled(t *testing.T) {
	for _, c := range []*Cache{New(0, 10), New(time.Minute, 0), nil} {
		if c.Seen("x") || c.Seen("x") {
			t.Fatal("disabled cache must never report duplicates")
		}
	}
	c := New(time.Minute, 10)
	if c.Seen("") || c.Seen("") {
		t.Fatal("empty key must never be a duplicate")
	}
}

func TestSeen_Concurrent(t *testing.T) {
	c := New(time.Minute, 1000)
	var fresh int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if !c.Seen(fmt.Sprintf("msg-%d", i%10)) {
				atomic.AddInt32(&fresh, 1)
			}
		}(i)
	}
	wg.Wait()
	if fresh != 10 {
		t.Fatalf("expected exactly 10 new keys, got %d", fresh)
	}
}

func TestForget(t *testing.T) {
	c, _ := newTestCache(time.Minute, 10)
	c.Seen("msg-1")
	c.Forget("msg-1")
	c.Forget("unknown")
	if c.Seen("msg-1") {
		t.Fatal("forgotten key must be new again")
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", c.Len())
	}
}
