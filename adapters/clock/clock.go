// Package clock provides ports.Clock implementations. Rate limit window
// expiry is a logical check against Now, never a scheduled timer, so a
// swapped-in Fake drives every time-dependent path deterministically.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/polyapi/ports"
)

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

var _ ports.Clock = Real{}

// Fake is a manually driven clock for tests. Time only moves when Set or
// Advance is called.
type Fake struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFake creates a fake clock frozen at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set jumps the clock to t, forward or backward.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var _ ports.Clock = (*Fake)(nil)
