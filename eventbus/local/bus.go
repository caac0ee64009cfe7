// Package local is an in-process evcache.EventBus. Publish delivers
// synchronously on the caller's goroutine, so every subscribed cache has applied
// the event by the time Publish returns.
package local

import (
	"sync"

	"github.com/unkn0wn-root/evcache"
	"github.com/unkn0wn-root/evcache/internal/mask"
)

type Bus struct {
	mu   sync.RWMutex
	subs map[uint64]*subscription
	next uint64
}

var _ evcache.EventBus = (*Bus)(nil)

func New() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

type subscription struct {
	bus    *Bus
	id     uint64
	filter mask.Matcher
	h      evcache.EventHandler

	// mu serializes delivery with Unsubscribe; a handler must not unsubscribe
	// itself from inside a delivery.
	mu     sync.Mutex
	active bool
}

// Subscribe registers h for events whose name matches the eventType glob.
func (b *Bus) Subscribe(eventType string, h evcache.EventHandler) (evcache.Subscription, error) {
	if eventType == "" {
		eventType = evcache.DefaultEventType
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	s := &subscription{bus: b, id: b.next, filter: mask.Compile([]string{eventType}), h: h, active: true}
	b.subs[s.id] = s
	return s, nil
}

// Publish delivers Event{name, data} to every matching subscriber and returns
// how many received it.
func (b *Bus) Publish(name string, data any) int {
	b.mu.RLock()
	targets := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.filter.Match(name) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	ev := evcache.Event{Name: name, Data: data}
	n := 0
	for _, s := range targets {
		if s.deliver(ev) {
			n++
		}
	}
	return n
}

// Len is the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (s *subscription) deliver(ev evcache.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	s.h(ev)
	return true
}

// Unsubscribe waits for an in-progress delivery to this subscription to finish.
func (s *subscription) Unsubscribe() error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	return nil
}
