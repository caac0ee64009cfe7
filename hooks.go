package evcache

// Eviction reasons passed to Hooks.Evicted.
const (
	ReasonExpired     = "expired"
	ReasonInvalidated = "invalidated"
	ReasonCapacity    = "capacity"
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking: the cache calls them while
// holding its lock.
type Hooks interface {
	// The cache dropped an entry on its own.
	// reason ∈ {"expired", "invalidated", "capacity"}.
	// namespace is empty for the keyed cache and the library URI for adhoc.
	Evicted(namespace, key, reason string)

	// A matching invalidation event arrived while key was being computed;
	// the result was discarded and the producer is called again.
	ComputeRaced(key string, attempt int, event string)

	// Every attempt raced; the last value went to the waiters uncached.
	ComputeExhausted(key string, attempts int)

	// The producer failed; err went to every waiter.
	ComputeFailed(key string, err error)

	// An adhoc write older than the stored library version was dropped.
	VersionConflict(libraryURI, hash string, stored, incoming int64)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Evicted(string, string, string)               {}
func (NopHooks) ComputeRaced(string, int, string)             {}
func (NopHooks) ComputeExhausted(string, int)                 {}
func (NopHooks) ComputeFailed(string, error)                  {}
func (NopHooks) VersionConflict(string, string, int64, int64) {}
