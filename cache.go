package evcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/evcache/internal/keys"
	"github.com/unkn0wn-root/evcache/internal/mask"
	"github.com/unkn0wn-root/evcache/internal/store"
)

type cache[V any] struct {
	log   Logger
	hooks Hooks
	now   func() time.Time

	enabled     bool
	maxAttempts int
	resetEvents map[string]struct{}

	// mu guards everything below and is handed to the table, whose expiry
	// timer takes it before sweeping.
	mu      sync.Mutex
	table   *store.Table[V]
	flights map[string]*flight
	closed  bool

	group     singleflight.Group
	sub       Subscription
	closeOnce sync.Once
}

func newCache[V any](opts Options) (*cache[V], error) {
	if opts.MaxSize < 0 {
		return nil, fmt.Errorf("evcache: negative max size %d", opts.MaxSize)
	}
	if opts.MaxComputeAttempts < 0 {
		return nil, fmt.Errorf("evcache: negative max compute attempts %d", opts.MaxComputeAttempts)
	}

	c := &cache[V]{
		enabled: !opts.Disabled,
		flights: make(map[string]*flight),
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.now = clockOrNow(opts.Clock)
	c.maxAttempts = coalesce(opts.MaxComputeAttempts, DefaultMaxComputeAttempts)
	c.resetEvents = make(map[string]struct{}, len(opts.ResetEvents))
	for _, name := range opts.ResetEvents {
		c.resetEvents[name] = struct{}{}
	}

	tbl, err := store.New[V](store.Config{
		Locker:  &c.mu,
		MaxSize: opts.MaxSize,
		Now:     c.now,
		OnEvict: func(k store.Key, r store.Reason) {
			c.hooks.Evicted(k.Namespace, k.Name, string(r))
		},
	})
	if err != nil {
		return nil, err
	}
	c.table = tbl

	if opts.Bus != nil && c.enabled {
		eventType := coalesce(opts.EventType, DefaultEventType)
		sub, err := opts.Bus.Subscribe(eventType, c.onEvent)
		if err != nil {
			return nil, fmt.Errorf("evcache: subscribe %q: %w", eventType, err)
		}
		c.sub = sub
	}
	return c, nil
}

func (c *cache[V]) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active()
}

// active must be called with mu held.
func (c *cache[V]) active() bool { return c.enabled && !c.closed }

func (c *cache[V]) Close() error {
	var err error
	c.closeOnce.Do(func() {
		// unsubscribe first, outside mu: a bus may be delivering to onEvent right now
		if c.sub != nil {
			err = c.sub.Unsubscribe()
		}
		c.mu.Lock()
		c.closed = true
		c.resetLocked()
		c.mu.Unlock()
	})
	return err
}

func (c *cache[V]) Get(key any) (V, bool) {
	var zero V
	k, err := canonical(key)
	if err != nil {
		c.log.Warn("Get skipped (invalid key)", Fields{"err": err})
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active() {
		return zero, false
	}
	e, ok := c.table.Lookup(store.Key{Name: k})
	if !ok {
		return zero, false
	}
	return e.Value, true
}

func (c *cache[V]) Fetch(ctx context.Context, key any, produce Producer[V]) (V, error) {
	var zero V
	if produce == nil {
		return zero, ErrNilProducer
	}
	k, err := canonical(key)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	if !c.active() {
		c.mu.Unlock()
		it, err := produce(ctx)
		if err != nil {
			return zero, err
		}
		return it.Value, nil
	}
	if e, ok := c.table.Lookup(store.Key{Name: k}); ok {
		c.mu.Unlock()
		return e.Value, nil
	}
	c.mu.Unlock()

	// The first caller's context carries values into the producer but not its
	// cancellation: other waiters may still need the result.
	pctx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k, func() (any, error) {
		return c.compute(pctx, k, produce)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *cache[V]) Set(key any, it Item[V]) error {
	k, err := canonical(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active() {
		return nil
	}
	c.storeLocked(k, it, mask.Compile(it.Masks))
	// an explicit write beats whatever an in-flight producer comes back with
	if f, ok := c.flights[k]; ok {
		f.stale = true
	}
	return nil
}

func (c *cache[V]) Delete(key any) bool {
	k, err := canonical(key)
	if err != nil {
		c.log.Warn("Delete skipped (invalid key)", Fields{"err": err})
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.flights[k]; ok {
		f.stale = true
	}
	return c.table.Remove(store.Key{Name: k})
}

func (c *cache[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.Sweep()
	return c.table.Len()
}

func (c *cache[V]) resetLocked() {
	c.table.Reset()
	for _, f := range c.flights {
		f.stale = true
	}
}

func (c *cache[V]) storeLocked(k string, it Item[V], m mask.Matcher) {
	now := c.now()
	c.table.Insert(&store.Entry[V]{
		Key:       store.Key{Name: k},
		Value:     it.Value,
		CreatedAt: now,
		ExpiresAt: it.expiresAt(now),
		Masks:     m,
	})
}

// onEvent is the bus handler. Events are applied synchronously: every running
// computation records the name before any of its waiters can be released.
func (c *cache[V]) onEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, f := range c.flights {
		f.record(ev.Name)
	}
	if _, ok := c.resetEvents[ev.Name]; ok {
		c.resetLocked()
		c.log.Debug("cache reset by event", Fields{"event": ev.Name})
		return
	}
	if n := c.table.Invalidate(ev.Name); n > 0 {
		c.log.Debug("entries invalidated by event", Fields{"event": ev.Name, "count": n})
	}
}

func canonical(key any) (string, error) {
	k, err := keys.Canonical(key)
	if err != nil {
		return "", &KeyError{Key: key, Err: err}
	}
	return k, nil
}
