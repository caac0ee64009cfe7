package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/evcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	EvictedEvery uint64
	RacedEvery   uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	// Canonical keys and content hashes may embed user data.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	evictedCtr atomic.Uint64
	racedCtr   atomic.Uint64
}

var _ evcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Evicted(namespace, key, reason string) {
	if h.l == nil || !sample(h.opts.EvictedEvery, &h.evictedCtr) {
		return
	}
	h.l.Debug("evcache.evicted",
		"ns", namespace,
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) ComputeRaced(key string, attempt int, event string) {
	if h.l == nil || !sample(h.opts.RacedEvery, &h.racedCtr) {
		return
	}
	h.l.Debug("evcache.compute_raced",
		"key", h.redact(key),
		"attempt", attempt,
		"event", event)
}

func (h *Hooks) ComputeExhausted(key string, attempts int) {
	if h.l == nil {
		return
	}
	h.l.Warn("evcache.compute_exhausted",
		"key", h.redact(key),
		"attempts", attempts)
}

func (h *Hooks) ComputeFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("evcache.compute_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) VersionConflict(libraryURI, hash string, stored, incoming int64) {
	if h.l == nil {
		return
	}
	h.l.Info("evcache.version_conflict",
		"library", libraryURI,
		"hash", h.redact(hash),
		"stored", stored,
		"incoming", incoming)
}
