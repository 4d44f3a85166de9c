//go:build tinygo

package core

import "runtime/interrupt"

// intrLock is the critical-section primitive guarding state shared between
// the tick handler and foreground code. On bare-metal targets the tick
// handler preempts the foreground, so the section disables interrupts for
// its duration. The guarded regions contain no yield points.
type intrLock struct {
	state interrupt.State
}

func (l *intrLock) lock() {
	l.state = interrupt.Disable()
}

func (l *intrLock) unlock() {
	interrupt.Restore(l.state)
}
