package sdspi

// Filler is the byte clocked out when the driver only wants to receive.
// The card ignores it on pure reads.
const Filler = 0xFF

// Bus is the byte-synchronous full-duplex transport under the driver. The
// bus is infallible and blocks until each exchange completes; all timeout
// policy lives in the protocol layer above.
type Bus interface {
	// Exchange writes out and returns the byte shifted in during the same
	// clock burst.
	Exchange(out byte) byte

	// Select asserts or deasserts the card's chip-select line.
	Select(assert bool)
}

// receive clocks one byte out of the card.
func receive(b Bus) byte {
	return b.Exchange(Filler)
}
