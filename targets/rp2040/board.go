//go:build rp2040

package main

import "machine"

// Board pin map. The display pins must stay consecutive: the scan
// backend shifts the packed segment/drive word onto pins segBase
// through segBase+14 in one go.
const (
	segBase = 8 // GPIO8-15: segment bus, bit 7 is the indicator line
	// GPIO16-22: drive lines, one per display slot

	tonePin = machine.GPIO7

	rowBase = 4 // GPIO4-6: switch row selects
	colBase = 0 // GPIO0-3: switch column returns, pulled down

	// Card on SPI1, pin set spi1c.
	cardSCK = machine.GPIO26
	cardSDO = machine.GPIO27
	cardSDI = machine.GPIO24
	cardCS  = machine.GPIO25
)
