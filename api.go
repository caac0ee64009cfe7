package evcache

import (
	"context"
	"time"
)

// Item is a value plus the metadata that governs its lifetime.
// ExpiresAt wins over TTL when both are set; with neither the entry never
// expires on its own. A zero TTL means unset; a negative one is already expired.
type Item[V any] struct {
	Value     V
	Masks     []string      // invalidation globs tested against event names
	TTL       time.Duration // relative to the moment the entry is stored
	ExpiresAt time.Time
}

func (it Item[V]) expiresAt(now time.Time) time.Time {
	if !it.ExpiresAt.IsZero() {
		return it.ExpiresAt
	}
	switch {
	case it.TTL > 0:
		return now.Add(it.TTL)
	case it.TTL < 0:
		return now
	}
	return time.Time{}
}

// Producer computes the value for a missing key. Its context is detached from
// the callers' cancellation: once started it runs to completion. A panic in a
// shared computation is returned to every waiter as a *PanicError.
type Producer[V any] func(ctx context.Context) (Item[V], error)

// Cache is the keyed cache. Keys may be strings or any CBOR-encodable value;
// structured keys compare by content, independent of map order.
type Cache[V any] interface {
	Enabled() bool
	// Close unsubscribes from the bus and drops every entry. Caches that are
	// never closed keep their subscription for the life of the process.
	Close() error

	// Get returns the cached value without computing anything.
	Get(key any) (v V, ok bool)
	// Fetch returns the cached value or computes it with produce, running at
	// most one producer per key at a time. Producer errors are returned as-is.
	Fetch(ctx context.Context, key any, produce Producer[V]) (V, error)
	// Set stores it directly.
	Set(key any, it Item[V]) error
	Delete(key any) bool
	// Reset drops every entry and cancels the expiry timer.
	Reset()
	Len() int
}

// Options tune the cache. The zero value is a working unbounded cache without
// event invalidation.
type Options struct {
	Bus         EventBus // nil => no event invalidation
	EventType   string   // subscription filter; "" => "*"
	ResetEvents []string // event names that drop everything, e.g. "system:cachereset"

	MaxSize            int // 0 => unbounded
	MaxComputeAttempts int // 0 => DefaultMaxComputeAttempts

	Logger   Logger           // if nil, NopLogger is used
	Hooks    Hooks            // if nil, NopHooks is used
	Clock    func() time.Time // nil => time.Now
	Disabled bool             // Get misses, Set is a no-op, Fetch calls the producer directly
}

func New[V any](opts Options) (Cache[V], error) {
	return newCache[V](opts)
}
