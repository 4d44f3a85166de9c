//go:build !tinygo

package core

import "sync"

// intrLock is the critical-section primitive guarding state shared between
// the tick handler and foreground code. On hosted builds the tick source is
// a goroutine, so a real mutex is required.
type intrLock struct {
	mu sync.Mutex
}

func (l *intrLock) lock() {
	l.mu.Lock()
}

func (l *intrLock) unlock() {
	l.mu.Unlock()
}
