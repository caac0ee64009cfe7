package store

import (
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/evcache/internal/expiry"
	"github.com/unkn0wn-root/evcache/internal/mask"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type evictLog struct {
	mu  sync.Mutex
	got []string
}

func (l *evictLog) record(k Key, r Reason) {
	l.mu.Lock()
	l.got = append(l.got, k.Namespace+"/"+k.Name+":"+string(r))
	l.mu.Unlock()
}

func (l *evictLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.got...)
}

type fixture struct {
	mu    sync.Mutex
	clk   *clock
	log   *evictLog
	table *Table[string]
}

func newFixture(t *testing.T, maxSize int, realClock bool) *fixture {
	t.Helper()
	f := &fixture{clk: &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}, log: &evictLog{}}
	now := f.clk.now
	if realClock {
		now = time.Now
	}
	tbl, err := New[string](Config{
		Locker:  &f.mu,
		MaxSize: maxSize,
		Now:     now,
		OnEvict: f.log.record,
		Timer:   expiry.TimerConfig{Grace: time.Millisecond, MinDelay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.table = tbl
	t.Cleanup(func() {
		f.mu.Lock()
		f.table.Reset()
		f.mu.Unlock()
	})
	return f
}

func (f *fixture) put(name, value string, expiresAt time.Time, masks ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table.Insert(&Entry[string]{
		Key:       Key{Name: name},
		Value:     value,
		ExpiresAt: expiresAt,
		Masks:     mask.Compile(masks),
	})
}

func (f *fixture) get(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.table.Lookup(Key{Name: name})
	if !ok {
		return "", false
	}
	return e.Value, true
}

func TestLazyExpiryBoundary(t *testing.T) {
	f := newFixture(t, 0, false)
	f.put("k", "v", f.clk.now().Add(time.Second))

	f.clk.advance(999 * time.Millisecond)
	if _, ok := f.get("k"); !ok {
		t.Fatalf("entry should be live 1ms before expiry")
	}
	f.clk.advance(time.Millisecond)
	if _, ok := f.get("k"); ok {
		t.Fatalf("entry must miss at its expiry instant")
	}
	if got := f.log.snapshot(); len(got) != 1 || got[0] != "/k:expired" {
		t.Fatalf("evictions = %v", got)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.table.Len() != 0 {
		t.Fatalf("expired entry still stored")
	}
	if _, ok := f.table.NextExpiry(); ok {
		t.Fatalf("queue item left behind after lazy expiry")
	}
}

func TestNeverExpiringEntryIsNotQueued(t *testing.T) {
	f := newFixture(t, 0, false)
	f.put("k", "v", time.Time{})
	f.clk.advance(365 * 24 * time.Hour)
	if _, ok := f.get("k"); !ok {
		t.Fatalf("entry without expiry must stay")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.table.NextExpiry(); ok {
		t.Fatalf("never-expiring entry was queued")
	}
	if f.table.TimerArmed() {
		t.Fatalf("timer armed without queued items")
	}
}

func TestFIFOCapacityIgnoresReads(t *testing.T) {
	f := newFixture(t, 2, false)
	f.put("k1", "1", time.Time{})
	f.put("k2", "2", time.Time{})
	if _, ok := f.get("k1"); !ok { // a hit must not protect k1
		t.Fatalf("k1 missing")
	}
	f.put("k3", "3", time.Time{})

	if _, ok := f.get("k1"); ok {
		t.Fatalf("k1 should have been evicted first")
	}
	for _, k := range []string{"k2", "k3"} {
		if _, ok := f.get(k); !ok {
			t.Fatalf("%s should remain", k)
		}
	}
	if got := f.log.snapshot(); len(got) != 1 || got[0] != "/k1:capacity" {
		t.Fatalf("evictions = %v", got)
	}
}

func TestRewriteReplacesQueueItem(t *testing.T) {
	f := newFixture(t, 0, false)
	now := f.clk.now()
	f.put("k", "old", now.Add(time.Second))
	f.put("k", "new", now.Add(time.Hour))

	f.mu.Lock()
	next, ok := f.table.NextExpiry()
	f.mu.Unlock()
	if !ok || !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("queue should hold only the rewritten expiry, got %v ok=%v", next, ok)
	}
	f.clk.advance(2 * time.Second)
	if v, ok := f.get("k"); !ok || v != "new" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
}

func TestRewriteMovesToNewest(t *testing.T) {
	f := newFixture(t, 2, false)
	f.put("a", "1", time.Time{})
	f.put("b", "1", time.Time{})
	f.put("a", "2", time.Time{})
	f.put("c", "1", time.Time{})

	if _, ok := f.get("b"); ok {
		t.Fatalf("b should be the oldest insertion after a was rewritten")
	}
	if v, ok := f.get("a"); !ok || v != "2" {
		t.Fatalf("a: got %q ok=%v", v, ok)
	}
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t, 0, false)
	f.put("a", "1", time.Time{}, "foo.*")
	f.put("b", "1", f.clk.now().Add(time.Hour), "foo.*", "other")
	f.put("c", "1", time.Time{}, "bar.*")

	f.mu.Lock()
	n := f.table.Invalidate("foo.bar.baz")
	_, queued := f.table.NextExpiry()
	f.mu.Unlock()

	if n != 2 {
		t.Fatalf("invalidated %d entries, want 2", n)
	}
	if queued {
		t.Fatalf("invalidated entry left a queue item")
	}
	if _, ok := f.get("c"); !ok {
		t.Fatalf("bar.* must not match foo.bar.baz")
	}
}

func TestTimerSweepsUnaccessedEntries(t *testing.T) {
	f := newFixture(t, 0, true)
	f.put("short", "v", time.Now().Add(20*time.Millisecond))
	f.put("long", "v", time.Now().Add(time.Hour))

	deadline := time.Now().Add(2 * time.Second)
	for {
		f.mu.Lock()
		n := f.table.Len()
		f.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timer never swept the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.table.TimerArmed() {
		t.Fatalf("timer should be rearmed for the remaining entry")
	}
	if got := f.log.snapshot(); len(got) != 1 || got[0] != "/short:expired" {
		t.Fatalf("evictions = %v", got)
	}
}

func TestSweepDropsExpiredPrefix(t *testing.T) {
	f := newFixture(t, 0, false)
	now := f.clk.now()
	f.put("a", "v", now.Add(time.Second))
	f.put("b", "v", now.Add(2*time.Second))
	f.put("c", "v", now.Add(time.Hour))
	f.clk.advance(2 * time.Second)

	f.mu.Lock()
	n := f.table.Sweep()
	size := f.table.Len()
	next, ok := f.table.NextExpiry()
	f.mu.Unlock()

	if n != 2 || size != 1 {
		t.Fatalf("swept %d, len %d; want 2 and 1", n, size)
	}
	if !ok || !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("next expiry = %v ok=%v", next, ok)
	}
	if got := f.log.snapshot(); len(got) != 2 || got[0] != "/a:expired" || got[1] != "/b:expired" {
		t.Fatalf("evictions = %v", got)
	}
}

func TestResetCancelsTimer(t *testing.T) {
	f := newFixture(t, 0, true)
	f.put("k", "v", time.Now().Add(10*time.Millisecond))

	f.mu.Lock()
	f.table.Reset()
	armed := f.table.TimerArmed()
	f.mu.Unlock()
	if armed {
		t.Fatalf("reset must disarm the timer")
	}

	time.Sleep(60 * time.Millisecond)
	if got := f.log.snapshot(); len(got) != 0 {
		t.Fatalf("no eviction expected after reset, got %v", got)
	}
	if _, ok := f.get("k"); ok {
		t.Fatalf("entry reappeared after reset")
	}
}

func TestNamespacesAreDistinct(t *testing.T) {
	f := newFixture(t, 0, false)
	f.mu.Lock()
	f.table.Insert(&Entry[string]{Key: Key{Namespace: "lib1", Name: "h"}, Value: "one"})
	f.table.Insert(&Entry[string]{Key: Key{Namespace: "lib2", Name: "h"}, Value: "two"})
	e1, ok1 := f.table.Lookup(Key{Namespace: "lib1", Name: "h"})
	e2, ok2 := f.table.Lookup(Key{Namespace: "lib2", Name: "h"})
	f.mu.Unlock()
	if !ok1 || !ok2 || e1.Value != "one" || e2.Value != "two" {
		t.Fatalf("namespaced entries collided")
	}
}
