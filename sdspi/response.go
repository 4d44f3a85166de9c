package sdspi

// R1 status bits. Every response starts with an R1 byte; its most
// significant bit is always clear, which is how the response is found among
// the filler bytes preceding it.
const (
	r1Idle           = 0x01
	r1EraseReset     = 0x02
	r1IllegalCommand = 0x04
	r1CRCError       = 0x08
	r1EraseSeqError  = 0x10
	r1AddressError   = 0x20
	r1ParameterError = 0x40

	// r1ErrorMask covers every R1 bit that aborts a transfer. The idle bit
	// is not an error: it is the state being polled for during negotiation.
	r1ErrorMask = 0x7E
)

// ocrCCS is the card-capacity-support bit in OCR byte 1 (response byte 1 of
// CMD58); ocrPowerUp is the power-up-complete bit next to it.
const (
	ocrPowerUp = 0x80
	ocrCCS     = 0x40
)

// Response is the uniform five-byte response buffer. Long responses
// (R3/R7) fill all five bytes; short responses (R1) occupy the first byte
// with the remaining four padded with filler.
type Response [5]byte

// R1 returns the leading status byte.
func (r Response) R1() byte {
	return r[0]
}

// masked ANDs each response byte with mask and compares to want.
func (r Response) masked(mask, want [5]byte) bool {
	for i := range r {
		if r[i]&mask[i] != want[i] {
			return false
		}
	}
	return true
}
