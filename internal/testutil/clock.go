package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant every DeterministicClock starts at.
var Epoch = time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

// DeterministicClock is a manually advanced wall clock for tests.
//
// Pass Now wherever a func() time.Time is expected (engine.WithNow,
// expr.Context.Now) so Date expressions evaluate identically on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu     sync.Mutex
	offset time.Duration
}

// NewDeterministicClock creates a clock reading Epoch.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Now returns Epoch plus the total advanced duration.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Epoch.Add(c.offset)
}

// Advance moves the clock forward by d. Negative durations are ignored;
// the clock never goes backwards.
func (c *DeterministicClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

// Reset returns the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
}
