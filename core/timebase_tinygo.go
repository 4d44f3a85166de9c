//go:build tinygo

package core

import "time"

// WallClock implements Clock from the runtime tick counter. On boards with
// a hardware microsecond timer the target may register a Clock of its own
// instead; this one is good enough for the millisecond-scale budgets used
// by the bus driver and the sound player.
type WallClock struct {
	start int64
}

// NewWallClock returns a Clock counting milliseconds from now.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now().UnixNano()}
}

func (c *WallClock) NowMS() uint32 {
	return uint32((time.Now().UnixNano() - c.start) / int64(time.Millisecond))
}
