// Package clock provides an injectable time source so every component's
// time-driven behavior (TTLs, cooldowns, daily rollovers, background
// timers) can be driven deterministically from tests.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic, millisecond-precision time source.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors time.Ticker so fake clocks can substitute their own.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the production Clock backed by the system wall clock.
type Real struct{}

// NewReal returns the system-clock implementation.
func NewReal() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Fake is a manually-advanced Clock for deterministic tests. The zero
// value is not usable; construct with NewFake.
type Fake struct {
	mu   sync.Mutex
	now  time.Time
	subs []*fakeTicker
}

// NewFake returns a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d, firing any ticker whose period
// has elapsed. Tests should call Advance instead of sleeping.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	tickers := make([]*fakeTicker, len(f.subs))
	copy(tickers, f.subs)
	f.mu.Unlock()

	for _, t := range tickers {
		t.maybeFire(now)
	}
}

// After returns a channel that fires once the fake clock has advanced
// by at least d from now.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	deadline := f.Now().Add(d)
	t := &fakeTicker{deadline: deadline, ch: ch, oneShot: true}

	f.mu.Lock()
	f.subs = append(f.subs, t)
	now := f.now
	f.mu.Unlock()
	t.maybeFire(now)

	return ch
}

// NewTicker returns a fake Ticker that fires every d of simulated time
// as Advance is called.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	ch := make(chan time.Time, 1)
	f.mu.Lock()
	t := &fakeTicker{period: d, deadline: f.now.Add(d), ch: ch}
	f.subs = append(f.subs, t)
	f.mu.Unlock()
	return t
}

type fakeTicker struct {
	mu       sync.Mutex
	period   time.Duration
	deadline time.Time
	oneShot  bool
	stopped  bool
	ch       chan time.Time
}

func (t *fakeTicker) maybeFire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if now.Before(t.deadline) {
		return
	}
	select {
	case t.ch <- now:
	default:
	}
	if t.oneShot {
		t.stopped = true
		return
	}
	for !now.Before(t.deadline) {
		t.deadline = t.deadline.Add(t.period)
	}
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}
