//go:build rp2040

package pio

// Display scan backends. The display tick writes one segment/drive pair
// per millisecond; a backend turns that pair into levels on the 15
// consecutive output pins (8 segment lines at the base, 7 drive lines
// above them).

// ScanWord packs a drive-line selection and a segment pattern into the
// 15-bit word a backend shifts out.
func ScanWord(drive byte, segments byte) uint32 {
	return uint32(drive&0x7F)<<8 | uint32(segments)
}

// Scanner is one display scan backend.
type Scanner interface {
	// Init claims the hardware and configures the 15 pins starting at
	// basePin as outputs.
	Init(basePin uint8) error

	// Output drives the packed scan word onto the pins.
	Output(word uint32)
}

// NewScanner returns the best available backend: a PIO state machine
// when one can be claimed, direct GPIO otherwise.
func NewScanner() Scanner {
	if s := newPIOScanner(); s != nil {
		return s
	}
	return newGPIOScanner()
}
