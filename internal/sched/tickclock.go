// internal/sched/tickclock.go

package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickClock is the logical clock the scheduler compares ready ticks against.
// Only the host advances it, between frames. Start adds an optional real-time
// pulse on Ch that a host loop can turn into Advance calls.
type TickClock struct {
	Ch    chan struct{}
	count atomic.Int64
	stop  chan struct{}
	start sync.Once
	once  sync.Once
}

// NewTickClock creates a clock at tick 0. buffer sizes the pulse channel.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins emitting pulses at the given interval. It does not advance the count.
// A host that falls behind finds at most cap(Ch) pending pulses, never a backlog.
// Only the first call starts the pulse.
func (c *TickClock) Start(interval time.Duration) {
	c.start.Do(func() { c.pulse(interval) })
}

func (c *TickClock) pulse(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		defer close(c.Ch)
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
			}
			select {
			case c.Ch <- struct{}{}:
			default:
			}
		}
	}()
}

// Stop signals the pulse goroutine to exit and close Ch. Safe to call more than once.
func (c *TickClock) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Count returns the current tick.
func (c *TickClock) Count() Tick {
	return Tick(c.count.Load())
}

// Advance moves the clock forward by n ticks and returns the new tick.
func (c *TickClock) Advance(n Tick) Tick {
	return Tick(c.count.Add(int64(n)))
}

// Set moves the clock to an absolute tick.
func (c *TickClock) Set(t Tick) {
	c.count.Store(int64(t))
}
