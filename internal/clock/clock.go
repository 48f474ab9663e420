// Package clock provides an injectable time source.  The engine never
// calls time.Now directly; hold expiry and sweep behaviour depend on the
// clock handed in at construction, which lets tests pin time to a fixed
// instant.  All returned times are in UTC.
package clock

import "time"

// Clock yields the current time for hold expiry and sweeping.
type Clock interface {
    Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Fixed is a clock that always reports the same instant.  Tests advance it
// explicitly via Set or Advance.  Fixed is not safe for concurrent mutation
// while readers are active; tests that exercise concurrency should set the
// time before spawning goroutines.
type Fixed struct {
    now time.Time
}

// NewFixed returns a clock pinned to t.
func NewFixed(t time.Time) *Fixed { return &Fixed{now: t.UTC()} }

func (f *Fixed) Now() time.Time { return f.now }

// Set pins the clock to t.
func (f *Fixed) Set(t time.Time) { f.now = t.UTC() }

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.now = f.now.Add(d) }
