package dom

import (
	"sync/atomic"
	"time"
)

// DefaultEpoch is where a window's virtual clock starts unless configured.
var DefaultEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Clock is the window's virtual clock.
//
// Time only moves when the window advances it. The sequence counter stamps
// timers so that timers due at the same instant fire in registration order.
//
// Thread-safety: Now and Next are safe for concurrent use; advancing is
// done by the loop goroutine only.
type Clock struct {
	epoch  time.Time
	offset atomic.Int64 // nanoseconds since epoch
	seq    atomic.Int64
}

// NewClock creates a clock reading epoch.
func NewClock(epoch time.Time) *Clock {
	return &Clock{epoch: epoch}
}

// Now returns the current virtual time.
func (c *Clock) Now() time.Time {
	return c.epoch.Add(c.Elapsed())
}

// Elapsed returns the virtual time passed since the epoch.
func (c *Clock) Elapsed() time.Duration {
	return time.Duration(c.offset.Load())
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

func (c *Clock) advanceTo(elapsed time.Duration) {
	if elapsed > c.Elapsed() {
		c.offset.Store(int64(elapsed))
	}
}
