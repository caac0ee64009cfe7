package evcache

import (
	"context"
	"runtime/debug"

	"github.com/unkn0wn-root/evcache/internal/mask"
	"github.com/unkn0wn-root/evcache/internal/store"
)

// flight is the bookkeeping for one running computation. It lives in
// cache.flights while the producer runs and is guarded by cache.mu.
type flight struct {
	// events seen during the current attempt
	events map[string]struct{}
	// stale is set when the key was deleted, overwritten or the cache was reset
	// mid-attempt; the result then goes to the waiters but is not stored.
	stale bool
}

func (f *flight) record(name string) { f.events[name] = struct{}{} }

func (f *flight) restart() {
	clear(f.events)
	f.stale = false
}

// compute runs inside the singleflight group for k. A result whose masks
// match an event delivered while the producer ran is discarded and the
// producer is called again, at most maxAttempts times in total.
func (c *cache[V]) compute(ctx context.Context, k string, produce Producer[V]) (V, error) {
	var zero V
	sk := store.Key{Name: k}

	c.mu.Lock()
	// a previous flight may have stored the value after our caller's lookup
	if e, ok := c.table.Lookup(sk); ok {
		c.mu.Unlock()
		return e.Value, nil
	}
	f := &flight{events: make(map[string]struct{})}
	c.flights[k] = f
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.flights, k)
		c.mu.Unlock()
	}()

	for attempt := 1; ; attempt++ {
		it, err := safeProduce(ctx, produce)
		if err != nil {
			c.hooks.ComputeFailed(k, err)
			c.log.Debug("producer failed", Fields{"key": k, "attempt": attempt, "err": err})
			return zero, err
		}
		m := mask.Compile(it.Masks)

		c.mu.Lock()
		event, raced := m.MatchAny(f.events)
		if !raced {
			stored := !f.stale && c.active()
			if stored {
				c.storeLocked(k, it, m)
			}
			c.mu.Unlock()
			if !stored {
				c.log.Debug("computed value not stored (key changed during compute)", Fields{"key": k})
			}
			return it.Value, nil
		}
		if attempt >= c.maxAttempts {
			c.hooks.ComputeExhausted(k, attempt)
			c.mu.Unlock()
			c.log.Warn("compute retries exhausted; returning uncached value",
				Fields{"key": k, "attempts": attempt, "event": event})
			return it.Value, nil
		}
		c.hooks.ComputeRaced(k, attempt, event)
		f.restart()
		c.mu.Unlock()
		c.log.Debug("compute raced invalidation; retrying", Fields{"key": k, "attempt": attempt, "event": event})
	}
}

// safeProduce turns a producer panic into a *PanicError so it reaches every
// waiter instead of crashing the singleflight goroutine.
func safeProduce[V any](ctx context.Context, produce Producer[V]) (it Item[V], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return produce(ctx)
}
