// Package store holds cache entries in insertion order with lazy and
// timer-driven expiry, mask invalidation and FIFO capacity eviction.
package store

import (
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/unkn0wn-root/evcache/internal/expiry"
	"github.com/unkn0wn-root/evcache/internal/mask"
)

// Key addresses one entry. The keyed cache leaves Namespace empty; the adhoc
// cache uses (libraryURI, hash).
type Key struct {
	Namespace string
	Name      string
}

// Reason tells why the table dropped an entry on its own.
type Reason string

const (
	Expired     Reason = "expired"
	Invalidated Reason = "invalidated"
	Capacity    Reason = "capacity"
)

// Entry is immutable once inserted; a rewrite inserts a new Entry.
type Entry[V any] struct {
	Key       Key
	Value     V
	Version   int64
	CreatedAt time.Time
	ExpiresAt time.Time // zero => never expires
	Masks     mask.Matcher
}

func (e *Entry[V]) expiredAt(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

func (e *Entry[V]) queueItem() expiry.Item {
	return expiry.Item{At: e.ExpiresAt, Namespace: e.Key.Namespace, Key: e.Key.Name}
}

type Config struct {
	// Locker is the owner's mutex. Every Table method must be called with it
	// held; the expiry timer acquires it before sweeping.
	Locker  sync.Locker
	MaxSize int // 0 => unbounded
	Now     func() time.Time
	OnEvict func(k Key, r Reason) // called with Locker held; keep it cheap
	Timer   expiry.TimerConfig
}

// Table is not safe for concurrent use on its own; see Config.Locker.
type Table[V any] struct {
	entries *simplelru.LRU[Key, *Entry[V]]
	queue   expiry.Queue
	timer   *expiry.Timer
	maxSize int
	now     func() time.Time
	onEvict func(Key, Reason)
}

func New[V any](cfg Config) (*Table[V], error) {
	t := &Table[V]{
		maxSize: cfg.MaxSize,
		now:     cfg.Now,
		onEvict: cfg.OnEvict,
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.onEvict == nil {
		t.onEvict = func(Key, Reason) {}
	}

	// Capacity is enforced by Insert; the LRU is only an insertion-ordered
	// map here. Reads go through Peek, which never reorders.
	entries, err := simplelru.NewLRU[Key, *Entry[V]](math.MaxInt, t.dropQueued)
	if err != nil {
		return nil, err
	}
	t.entries = entries
	t.timer = expiry.NewTimer(cfg.Locker, t.now, func() { t.Sweep() }, cfg.Timer)
	return t, nil
}

// dropQueued runs for every entry leaving the LRU.
func (t *Table[V]) dropQueued(_ Key, e *Entry[V]) {
	if !e.ExpiresAt.IsZero() {
		t.queue.Remove(e.queueItem())
	}
}

// Lookup returns the live entry for k. An entry whose expiry has passed is
// removed and reported as a miss, whether or not the timer has fired yet.
func (t *Table[V]) Lookup(k Key) (*Entry[V], bool) {
	e, ok := t.entries.Peek(k)
	if !ok {
		return nil, false
	}
	if e.expiredAt(t.now()) {
		t.entries.Remove(k)
		t.onEvict(k, Expired)
		return nil, false
	}
	return e, true
}

// Insert stores e, replacing any entry under the same key, then evicts the
// oldest-inserted entries while the table is over capacity.
func (t *Table[V]) Insert(e *Entry[V]) {
	t.entries.Remove(e.Key)
	t.entries.Add(e.Key, e)
	if !e.ExpiresAt.IsZero() {
		if head := t.queue.Insert(e.queueItem()); head {
			t.timer.Arm(e.ExpiresAt)
		}
	}
	for t.maxSize > 0 && t.entries.Len() > t.maxSize {
		k, _, ok := t.entries.RemoveOldest()
		if !ok {
			break
		}
		t.onEvict(k, Capacity)
	}
}

// Remove deletes k and reports whether it was present.
func (t *Table[V]) Remove(k Key) bool {
	return t.entries.Remove(k)
}

// Invalidate drops every entry whose masks match eventName.
func (t *Table[V]) Invalidate(eventName string) int {
	n := 0
	for _, k := range t.entries.Keys() {
		e, ok := t.entries.Peek(k)
		if !ok || !e.Masks.Match(eventName) {
			continue
		}
		t.entries.Remove(k)
		t.onEvict(k, Invalidated)
		n++
	}
	return n
}

// Reset drops every entry and cancels the pending expiry wake-up.
func (t *Table[V]) Reset() {
	t.entries.Purge()
	t.queue.Reset()
	t.timer.Stop()
}

func (t *Table[V]) Len() int { return t.entries.Len() }

// Keys returns the keys from oldest to newest insertion.
func (t *Table[V]) Keys() []Key { return t.entries.Keys() }

// NextExpiry is the earliest pending expiry, if any.
func (t *Table[V]) NextExpiry() (time.Time, bool) {
	it, ok := t.queue.Peek()
	return it.At, ok
}

// TimerArmed reports whether an expiry wake-up is pending.
func (t *Table[V]) TimerArmed() bool { return t.timer.Armed() }

// Sweep drops every entry whose expiry has passed and rearms the timer for
// the next one. The timer calls it; callers that need an exact Len can too.
func (t *Table[V]) Sweep() int {
	n := 0
	for _, it := range t.queue.PopExpired(t.now()) {
		k := Key{Namespace: it.Namespace, Name: it.Key}
		if t.entries.Remove(k) {
			t.onEvict(k, Expired)
			n++
		}
	}
	if n == 0 && t.timer.Armed() {
		return 0
	}
	if head, ok := t.queue.Peek(); ok {
		t.timer.Arm(head.At)
	} else {
		t.timer.Stop()
	}
	return n
}
