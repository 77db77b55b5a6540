package download

import "sync/atomic"

// Flag is the cooperative control signal chunk workers poll between network
// reads. Writers never wait for readers; cancellation latency is bounded by
// one read iteration.
type Flag int32

const (
	// FlagStop tells workers to abort at the next poll.
	FlagStop Flag = iota
	// FlagGo lets workers proceed.
	FlagGo
	// FlagWait is a distinct stored state, but chunk workers and validators
	// treat it like FlagStop: anything other than FlagGo aborts at the next
	// poll.
	FlagWait
)

// Control is the shared tri-state flag for one download run.
type Control struct {
	v atomic.Int32
}

// NewControl returns a control flag in the given initial state. Agents start
// stopped; the queue manager flips them to go when their run begins.
func NewControl(initial Flag) *Control {
	c := &Control{}
	c.v.Store(int32(initial))
	return c
}

func (c *Control) Get() Flag {
	return Flag(c.v.Load())
}

func (c *Control) Set(f Flag) {
	c.v.Store(int32(f))
}
