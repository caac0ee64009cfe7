// Package expiry keeps pending expirations in one ascending queue backed by a
// single rearmable timer.
package expiry

import (
	"slices"
	"strings"
	"time"
)

// Item is one pending expiration. Items are ordered by At, then Namespace, then Key.
type Item struct {
	At        time.Time
	Namespace string
	Key       string
}

func compare(a, b Item) int {
	if c := a.At.Compare(b.At); c != 0 {
		return c
	}
	if c := strings.Compare(a.Namespace, b.Namespace); c != 0 {
		return c
	}
	return strings.Compare(a.Key, b.Key)
}

// Queue is a sorted slice of Items. It holds at most one item per (Namespace, Key);
// callers remove the old item before inserting a replacement.
// Not safe for concurrent use.
type Queue struct {
	items []Item
}

// Insert adds it and reports whether it became the earliest item.
func (q *Queue) Insert(it Item) (head bool) {
	i, _ := slices.BinarySearchFunc(q.items, it, compare)
	q.items = slices.Insert(q.items, i, it)
	return i == 0
}

// Remove deletes it; no-op if absent.
func (q *Queue) Remove(it Item) bool {
	i, ok := slices.BinarySearchFunc(q.items, it, compare)
	if !ok {
		return false
	}
	q.items = slices.Delete(q.items, i, i+1)
	return true
}

// PopExpired removes and returns every item with At <= now.
func (q *Queue) PopExpired(now time.Time) []Item {
	n := 0
	for n < len(q.items) && !q.items[n].At.After(now) {
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]Item, n)
	copy(out, q.items[:n])
	q.items = slices.Delete(q.items, 0, n)
	return out
}

// Peek returns the earliest item.
func (q *Queue) Peek() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Reset() { q.items = nil }
