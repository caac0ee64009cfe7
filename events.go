package evcache

// Event is one change notification. Names are dot-hierarchical,
// e.g. "wrd:type.5.change" or "system:cachereset".
type Event struct {
	Name string
	Data any
}

// EventHandler receives events. A handler must not block for long: buses may
// deliver synchronously.
type EventHandler func(Event)

// EventBus is the publish/subscribe mechanism caches listen to.
// eventType is a glob over event names ("*" = everything).
type EventBus interface {
	Subscribe(eventType string, h EventHandler) (Subscription, error)
}

// Subscription is returned by EventBus.Subscribe.
type Subscription interface {
	// Unsubscribe stops delivery. After it returns the handler is not called again.
	Unsubscribe() error
}
