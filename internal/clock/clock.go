// Package clock supplies receipt timestamps for inbound frames.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current local time. Implementations must not block.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns the system wall clock.
func Real() Clock { return realClock{} }

// Fake is a manually driven clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set jumps the clock to t, including backwards.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

type monotonic struct {
	mu   sync.Mutex
	base Clock
	last time.Time
}

// Monotonic wraps c so successive Now values never decrease. A backwards
// step of the wall clock repeats the last reading until c catches up.
func Monotonic(c Clock) Clock {
	if c == nil {
		c = Real()
	}
	return &monotonic{base: c}
}

func (m *monotonic) Now() time.Time {
	now := m.base.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.last.IsZero() && now.Before(m.last) {
		return m.last
	}
	m.last = now
	return now
}
