// Package prom counts cache hook events with Prometheus.
//
//	hooks := prom.New(prometheus.DefaultRegisterer, "app")
//	c, _ := evcache.New[Report](evcache.Options{Hooks: hooks})
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/evcache"
)

// Hooks is safe to share between caches; counters are not labelled by key.
type Hooks struct {
	Evictions        *prometheus.CounterVec // label "reason"
	ComputeRaces     prometheus.Counter
	Exhaustions      prometheus.Counter
	ComputeFailures  prometheus.Counter
	VersionConflicts prometheus.Counter
}

var _ evcache.Hooks = (*Hooks)(nil)

// New registers the counters with reg under namespace_evcache_*.
// A nil reg creates unregistered counters.
func New(reg prometheus.Registerer, namespace string) *Hooks {
	f := promauto.With(reg)
	return &Hooks{
		Evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evcache",
			Name:      "evictions_total",
			Help:      "Entries dropped by the cache, by reason",
		}, []string{"reason"}),
		ComputeRaces: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evcache",
			Name:      "compute_races_total",
			Help:      "Producer results discarded because a matching event arrived mid-compute",
		}),
		Exhaustions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evcache",
			Name:      "compute_exhausted_total",
			Help:      "Computations that ran out of attempts and returned an uncached value",
		}),
		ComputeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evcache",
			Name:      "compute_failures_total",
			Help:      "Producer calls that returned an error",
		}),
		VersionConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evcache",
			Name:      "version_conflicts_total",
			Help:      "Adhoc writes dropped because a newer library version was stored",
		}),
	}
}

func (h *Hooks) Evicted(_, _, reason string)                  { h.Evictions.WithLabelValues(reason).Inc() }
func (h *Hooks) ComputeRaced(string, int, string)             { h.ComputeRaces.Inc() }
func (h *Hooks) ComputeExhausted(string, int)                 { h.Exhaustions.Inc() }
func (h *Hooks) ComputeFailed(string, error)                  { h.ComputeFailures.Inc() }
func (h *Hooks) VersionConflict(string, string, int64, int64) { h.VersionConflicts.Inc() }
