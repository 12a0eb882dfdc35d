package gotauth

import (
	"sync/atomic"
	"time"
)

// IDGenerator produces internal user ids.
type IDGenerator interface {
	NextID() int64
}

// ClockIDGenerator derives ids from the wall clock in milliseconds.  Ids are
// strictly increasing within a process, so two users created in the same
// millisecond still get distinct ids.
type ClockIDGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

// NewClockIDGenerator returns a generator backed by time.Now.
func NewClockIDGenerator() *ClockIDGenerator {
	return &ClockIDGenerator{now: time.Now}
}

func (g *ClockIDGenerator) NextID() int64 {
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	for {
		candidate := now().UnixMilli()
		last := g.last.Load()
		if candidate <= last {
			candidate = last + 1
		}
		if g.last.CompareAndSwap(last, candidate) {
			return candidate
		}
	}
}
