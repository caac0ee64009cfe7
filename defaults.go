package evcache

import "time"

// DefaultMaxComputeAttempts bounds how often a producer is re-run because a
// matching invalidation event arrived mid-computation. Sustained event storms
// can cost up to this many producer runs per Fetch, never unbounded latency.
const DefaultMaxComputeAttempts = 10

// DefaultEventType subscribes to every event.
const DefaultEventType = "*"

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// clockOrNow keeps a nil clock from reaching the store.
func clockOrNow(f func() time.Time) func() time.Time {
	if f == nil {
		return time.Now
	}
	return f
}
