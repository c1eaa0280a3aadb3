// Package clock abstracts wall time for plan construction.
//
// Converters read the clock for default plan ids (cache-<unix ms>) and swap
// window starts (unix ns); stores stamp archive records with it. Tests pass a
// Fake so ids and windows are deterministic.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Func adapts an ordinary function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

// Real implements Clock using the system time.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time {
	return time.Now()
}

// OrReal returns c, or Real when c is nil.
func OrReal(c Clock) Clock {
	if c == nil {
		return Real{}
	}
	return c
}

// UnixNanos returns the clock's current time in nanoseconds since the epoch.
func UnixNanos(c Clock) int64 {
	return c.Now().UnixNano()
}

// UnixMillis returns the clock's current time in milliseconds since the epoch.
func UnixMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}

// Fake is a manually driven Clock. It is safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewFake creates a Fake fixed at t.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

// Now returns the fake time, then moves it forward by the configured step.
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// Set replaces the fake time.
func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the fake time by d, which may be negative.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// AutoAdvance makes every Now call move the time forward by step. A zero step
// freezes the clock again.
func (c *Fake) AutoAdvance(step time.Duration) {
	c.mu.Lock()
	c.step = step
	c.mu.Unlock()
}
