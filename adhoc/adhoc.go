// Package adhoc is the versioned, multi-tenant variant of the cache: values are
// keyed by (library URI, content hash) and tagged with the library version that
// produced them.
//
// A write never replaces a newer version; a read for any version other than the
// stored one misses without disturbing the stored entry. Entries are still
// dropped by expiry, by invalidation masks matching bus events, and by FIFO
// capacity eviction, exactly as in the keyed cache.
//
// One Cache is meant to be built at process start and shared by every hosted
// session (see package service).
package adhoc

import (
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/evcache"
	"github.com/unkn0wn-root/evcache/internal/mask"
	"github.com/unkn0wn-root/evcache/internal/store"
)

type Options struct {
	Bus         evcache.EventBus // nil => no event invalidation
	EventType   string           // "" => "*"
	ResetEvents []string         // event names that trigger Clear
	MaxSize     int              // 0 => unbounded

	Logger evcache.Logger
	Hooks  evcache.Hooks
	Clock  func() time.Time
}

// Stats are cumulative since construction or the last Clear.
type Stats struct {
	CacheSize int
	Hits      uint64
	Requests  uint64
}

type Cache[V any] struct {
	log         evcache.Logger
	hooks       evcache.Hooks
	now         func() time.Time
	resetEvents map[string]struct{}

	mu       sync.Mutex
	table    *store.Table[V]
	hits     uint64
	requests uint64
	closed   bool

	sub       evcache.Subscription
	closeOnce sync.Once
}

func New[V any](opts Options) (*Cache[V], error) {
	if opts.MaxSize < 0 {
		return nil, fmt.Errorf("adhoc: negative max size %d", opts.MaxSize)
	}
	c := &Cache[V]{
		log:         opts.Logger,
		hooks:       opts.Hooks,
		now:         opts.Clock,
		resetEvents: make(map[string]struct{}, len(opts.ResetEvents)),
	}
	if c.log == nil {
		c.log = evcache.NopLogger{}
	}
	if c.hooks == nil {
		c.hooks = evcache.NopHooks{}
	}
	if c.now == nil {
		c.now = time.Now
	}
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

	if opts.Bus != nil {
		eventType := opts.EventType
		if eventType == "" {
			eventType = evcache.DefaultEventType
		}
		sub, err := opts.Bus.Subscribe(eventType, c.onEvent)
		if err != nil {
			return nil, fmt.Errorf("adhoc: subscribe %q: %w", eventType, err)
		}
		c.sub = sub
	}
	return c, nil
}

// Get returns the value stored for (libraryURI, hash) if it was produced by
// exactly libraryVersion.
func (c *Cache[V]) Get(libraryURI string, libraryVersion int64, hash string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return zero, false
	}
	c.requests++
	e, ok := c.table.Lookup(store.Key{Namespace: libraryURI, Name: hash})
	if !ok || e.Version != libraryVersion {
		return zero, false
	}
	c.hits++
	return e.Value, true
}

// Set stores value unless a newer library version is already stored; an equal
// version replaces. A zero expires means the entry never expires on its own.
func (c *Cache[V]) Set(libraryURI string, libraryVersion int64, hash string, expires time.Time, masks []string, value V) {
	k := store.Key{Namespace: libraryURI, Name: hash}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if e, ok := c.table.Lookup(k); ok && e.Version > libraryVersion {
		c.hooks.VersionConflict(libraryURI, hash, e.Version, libraryVersion)
		c.log.Debug("adhoc write dropped (older library version)", evcache.Fields{
			"library": libraryURI, "hash": hash, "stored": e.Version, "incoming": libraryVersion,
		})
		return
	}
	c.table.Insert(&store.Entry[V]{
		Key:       k,
		Value:     value,
		Version:   libraryVersion,
		CreatedAt: c.now(),
		ExpiresAt: expires,
		Masks:     mask.Compile(masks),
	})
}

// Clear drops every entry, cancels the expiry timer and zeroes the counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Stats reports CacheSize after dropping entries that have already expired.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.Sweep()
	return Stats{CacheSize: c.table.Len(), Hits: c.hits, Requests: c.requests}
}

// Close unsubscribes from the bus and clears the cache. Later calls are no-ops
// and Get misses without counting.
func (c *Cache[V]) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.sub != nil {
			err = c.sub.Unsubscribe()
		}
		c.mu.Lock()
		c.closed = true
		c.clearLocked()
		c.mu.Unlock()
	})
	return err
}

func (c *Cache[V]) clearLocked() {
	c.table.Reset()
	c.hits, c.requests = 0, 0
}

func (c *Cache[V]) onEvent(ev evcache.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.resetEvents[ev.Name]; ok {
		c.clearLocked()
		c.log.Debug("adhoc cache cleared by event", evcache.Fields{"event": ev.Name})
		return
	}
	if n := c.table.Invalidate(ev.Name); n > 0 {
		c.log.Debug("adhoc entries invalidated by event", evcache.Fields{"event": ev.Name, "count": n})
	}
}
