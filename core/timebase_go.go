//go:build !tinygo

package core

import "time"

// WallClock implements Clock from the host's monotonic clock.
type WallClock struct {
	start time.Time
}

// NewWallClock returns a Clock counting milliseconds from now.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) NowMS() uint32 {
	return uint32(time.Since(c.start) / time.Millisecond)
}
