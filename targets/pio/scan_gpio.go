//go:build rp2040

package pio

import (
	"device/rp"
	"machine"
)

// GPIOScanner is the fallback backend: it writes the scan word straight
// through the single-cycle I/O registers. Two register writes per slot.
type GPIOScanner struct {
	basePin uint8
	allMask uint32
}

func newGPIOScanner() *GPIOScanner {
	return &GPIOScanner{}
}

// Init configures the 15 pins as plain outputs and precomputes the
// register mask covering them.
func (s *GPIOScanner) Init(basePin uint8) error {
	s.basePin = basePin
	s.allMask = ((1 << scanPinCount) - 1) << basePin

	for i := uint8(0); i < scanPinCount; i++ {
		pin := machine.Pin(basePin + i)
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Low()
	}
	return nil
}

// Output sets and clears the pin group in two SIO writes.
func (s *GPIOScanner) Output(word uint32) {
	levels := (word << s.basePin) & s.allMask
	rp.SIO.GPIO_OUT_SET.Set(levels)
	rp.SIO.GPIO_OUT_CLR.Set(^levels & s.allMask)
}
