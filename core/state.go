// Device state and the per-tick unit of work.
//
// A single Device is constructed at startup and shared explicitly with the
// components that need it. The tick source (hardware timer on the board, a
// goroutine in the simulator) calls Tick once per millisecond; everything
// else runs in the single-threaded foreground.
package core

import "runtime"

// Device owns all process-lifetime mutable state of the board: the display
// buffer and multiplex cursor, the switch debouncer, the random generator
// and the debounced-key latch.
type Device struct {
	hw Hardware

	keys intrLock // guards the key latch and foreground display writes

	disp    DisplayBuffer
	muxSlot uint8

	deb debounceState
	rng randomState

	idle func()
}

// NewDevice creates the device state around the given hardware bindings.
func NewDevice(hw Hardware) *Device {
	return &Device{
		hw:   hw,
		deb:  debounceState{counter: DebounceTicks},
		idle: runtime.Gosched,
	}
}

// SetIdleFunc replaces the function WaitKey runs between polls. Targets
// without a preemptive tick source use it to pump pending work.
func (d *Device) SetIdleFunc(f func()) {
	if f == nil {
		f = func() {}
	}
	d.idle = f
}

// Tick is the single tick-context unit of work, executed in fixed order:
// display multiplexing, switch debouncing, random-number advance. It runs
// to completion before the foreground resumes and is never reentered.
func (d *Device) Tick() {
	d.stepDisplay()
	d.stepDebounce()
	d.stepRandom()
}

// stepDisplay drives the next digit/drive-line pair.
func (d *Device) stepDisplay() {
	d.muxSlot++
	if d.muxSlot >= DisplaySlots {
		d.muxSlot = 0
	}
	d.keys.lock()
	pattern := d.disp[d.muxSlot]
	d.keys.unlock()

	// Blank the drive lines while the segment pattern changes so the old
	// pattern never ghosts onto the new slot.
	d.hw.Display.WriteDrive(0)
	d.hw.Display.WriteDigit(pattern)
	d.hw.Display.WriteDrive(1 << d.muxSlot)
}

// UpdateDisplay applies fn to the display buffer inside the critical
// section, so a tick never multiplexes out a half-updated slot.
func (d *Device) UpdateDisplay(fn func(*DisplayBuffer)) {
	d.keys.lock()
	fn(&d.disp)
	d.keys.unlock()
}

// Display returns a snapshot of the display buffer.
func (d *Device) Display() DisplayBuffer {
	d.keys.lock()
	snap := d.disp
	d.keys.unlock()
	return snap
}

// Tone passes a divider straight through to the tone hardware.
func (d *Device) Tone(divider uint16) {
	d.hw.Tone.SetToneDivider(divider)
}
