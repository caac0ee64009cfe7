// Package evcache implements an in-process cache whose entries are dropped the
// moment a matching change event is observed, even when that event arrives
// while the value is still being computed.
//
// Components:
//   - Producer[V]: computes a value on a miss and names the invalidation masks
//     and expiry of the result.
//   - EventBus: change notifications; an entry is evicted when one of its masks
//     (globs such as "wrd:type.5.*") matches an event name.
//   - single flight: at most one producer runs per key; concurrent callers share
//     its outcome. A result that raced a matching event is recomputed, up to
//     Options.MaxComputeAttempts times, after which it is returned uncached.
//   - expiry: checked on every access and swept by one background timer.
//   - capacity: Options.MaxSize evicts the oldest-inserted entry. Hits do not
//     reorder entries, so this is FIFO, not LRU.
//
// Usage:
//
//	c, _ := evcache.New[Report](evcache.Options{Bus: bus, MaxSize: 1000})
//	defer c.Close() // unsubscribes; skipping it leaks the subscription
//
//	r, err := c.Fetch(ctx, key, func(ctx context.Context) (evcache.Item[Report], error) {
//	    r, err := build(ctx, key)
//	    return evcache.Item[Report]{Value: r, Masks: []string{"wrd:type.5.*"}, TTL: time.Hour}, err
//	})
//
// The versioned multi-tenant variant lives in package adhoc.
package evcache
