package session

import "sync/atomic"

// oneShot is a single-use token: Arm makes it available, and exactly one Consume call
// observes it before it resets.
type oneShot struct {
	armed atomic.Bool
}

func (o *oneShot) Arm() {
	o.armed.Store(true)
}

func (o *oneShot) Consume() bool {
	return o.armed.CompareAndSwap(true, false)
}

func (o *oneShot) Armed() bool {
	return o.armed.Load()
}
