//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2040 timer peripheral memory map. The raw registers give the free
// running 64-bit microsecond counter without latching side effects.
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08
	timerTIMERAWL = timerBase + 0x0C
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// hardwareUptime reads the full 64-bit microsecond counter. High must be
// read before and after low to catch a carry between the two words.
func hardwareUptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// timerClock implements the injected millisecond clock from the hardware
// timer. Deriving milliseconds from the 64-bit count keeps the 32-bit
// result monotonic modulo 2^32, which the wait budgets rely on.
type timerClock struct{}

func (timerClock) NowMS() uint32 {
	return uint32(hardwareUptime() / 1000)
}
