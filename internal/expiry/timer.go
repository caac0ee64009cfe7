package expiry

import (
	"sync"
	"time"
)

const (
	DefaultGrace    = 100 * time.Millisecond
	DefaultMinDelay = time.Second
	DefaultMaxDelay = 24 * time.Hour
)

// TimerConfig tunes the delay computation. Zero fields take the defaults.
type TimerConfig struct {
	Grace    time.Duration // added to the target so near-simultaneous expiries batch
	MinDelay time.Duration // floor; keeps an already-due target from spinning
	MaxDelay time.Duration // ceiling; longer targets are reached by rearming on wake
}

// Timer is one rearmable wake-up. Arm and Stop must be called with locker held;
// the callback acquires locker itself and runs fire while holding it.
//
// Each Arm/Stop bumps seq, and a callback observing a different seq returns
// without calling fire, so a stopped timer never fires.
type Timer struct {
	locker sync.Locker
	now    func() time.Time
	fire   func()
	cfg    TimerConfig

	t      *time.Timer
	seq    uint64
	target time.Time
}

func NewTimer(locker sync.Locker, now func() time.Time, fire func(), cfg TimerConfig) *Timer {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = DefaultMinDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if now == nil {
		now = time.Now
	}
	return &Timer{locker: locker, now: now, fire: fire, cfg: cfg}
}

// Arm cancels any pending wake-up and schedules one for target.
func (tm *Timer) Arm(target time.Time) {
	tm.Stop()
	tm.target = target
	seq := tm.seq
	tm.t = time.AfterFunc(tm.delay(target), func() { tm.wake(seq) })
}

// Stop cancels the pending wake-up, if any.
func (tm *Timer) Stop() {
	if tm.t != nil {
		tm.t.Stop()
		tm.t = nil
	}
	tm.seq++
	tm.target = time.Time{}
}

// Armed reports whether a wake-up is pending.
func (tm *Timer) Armed() bool { return tm.t != nil }

// Target is the instant the pending wake-up is aiming for.
func (tm *Timer) Target() time.Time { return tm.target }

func (tm *Timer) delay(target time.Time) time.Duration {
	d := target.Add(tm.cfg.Grace).Sub(tm.now())
	if d < tm.cfg.MinDelay {
		d = tm.cfg.MinDelay
	}
	if d > tm.cfg.MaxDelay {
		d = tm.cfg.MaxDelay
	}
	return d
}

func (tm *Timer) wake(seq uint64) {
	tm.locker.Lock()
	defer tm.locker.Unlock()
	if seq != tm.seq {
		return
	}
	if tm.now().Before(tm.target) {
		// clamped by MaxDelay; keep going toward the same target
		tm.Arm(tm.target)
		return
	}
	tm.t = nil
	tm.target = time.Time{}
	tm.seq++
	tm.fire()
}
