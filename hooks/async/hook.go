// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/evcache"
//	"github.com/unkn0wn-root/evcache/hooks/async"
//	"github.com/unkn0wn-root/evcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    EvictedEvery: 100, // sample logs: ~every 100th eviction
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache, _ := evcache.New[Report](evcache.Options{
//	    Bus:   bus,
//	    Hooks: hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/evcache"
)

// Hooks moves hook calls off the cache's locked path onto worker goroutines.
// Events that do not fit in the queue are dropped and counted.
type Hooks struct {
	inner   evcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed queue
	closed  bool
	dropped atomic.Uint64
}

var _ evcache.Hooks = (*Hooks)(nil)

func New(inner evcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}
	if inner == nil {
		inner = evcache.NopHooks{}
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped is the number of events lost to a full queue or a closed Hooks.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Evicted(ns, k, r string)           { h.try(func() { h.inner.Evicted(ns, k, r) }) }
func (h *Hooks) ComputeExhausted(k string, n int)  { h.try(func() { h.inner.ComputeExhausted(k, n) }) }
func (h *Hooks) ComputeFailed(k string, err error) { h.try(func() { h.inner.ComputeFailed(k, err) }) }
func (h *Hooks) ComputeRaced(k string, n int, ev string) {
	h.try(func() { h.inner.ComputeRaced(k, n, ev) })
}
func (h *Hooks) VersionConflict(lib, hash string, stored, incoming int64) {
	h.try(func() { h.inner.VersionConflict(lib, hash, stored, incoming) })
}
