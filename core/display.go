package core

// Display buffer layout. Seven bytes of segment/indicator patterns:
// four numeric digits, one combined indicator byte and two switch-LED
// bytes. The win and lose lamps share the switch-LED bytes, so rewrites of
// the switch LEDs must leave those bits alone.
const (
	DisplaySlots = 7

	slotDigit0     = 0 // most significant digit
	slotIndicators = 4
	slotLampsLow   = 5 // lamps 0-5 + win bit
	slotLampsHigh  = 6 // lamps 6-11 + lose bit

	lampBitsMask = 0x3F
	winBit       = 0x80 // in slotLampsLow
	loseBit      = 0x80 // in slotLampsHigh
)

// Indicator bits (slotIndicators).
const (
	IndCardReady = 0x01 // storage card initialized
	IndGameOver  = 0x02 // a finished game is being announced
	IndBestScore = 0x04 // digits currently show the recorded best score
)

// DisplayBuffer holds the raw patterns the tick handler multiplexes out to
// the physical display. It is written by the foreground under the device
// critical section and read only by the tick handler.
type DisplayBuffer [DisplaySlots]byte

// segment patterns for digits 0-9, active high, bit0=a .. bit6=g
var segDigits = [10]byte{
	0x3F, 0x06, 0x5B, 0x4F, 0x66, 0x6D, 0x7D, 0x07, 0x7F, 0x6F,
}

const (
	segBlank = 0x00
	segDash  = 0x40 // g only
)

// SetNumber renders v (0-9999) on the four digits with leading-zero
// blanking. Values out of range render as dashes.
func (b *DisplayBuffer) SetNumber(v uint16) {
	if v > 9999 {
		for i := 0; i < 4; i++ {
			b[slotDigit0+i] = segDash
		}
		return
	}
	digits := [4]uint16{v / 1000 % 10, v / 100 % 10, v / 10 % 10, v % 10}
	blank := true
	for i := 0; i < 4; i++ {
		if digits[i] != 0 || i == 3 {
			blank = false
		}
		if blank {
			b[slotDigit0+i] = segBlank
		} else {
			b[slotDigit0+i] = segDigits[digits[i]]
		}
	}
}

// SetIndicators replaces the indicator byte.
func (b *DisplayBuffer) SetIndicators(bits byte) {
	b[slotIndicators] = bits
}

// Indicators returns the indicator byte.
func (b *DisplayBuffer) Indicators() byte {
	return b[slotIndicators]
}

// SetLamps rewrites the twelve switch-LED bits from mask without disturbing
// the win/lose bits that live in the same bytes.
func (b *DisplayBuffer) SetLamps(mask uint16) {
	b[slotLampsLow] = b[slotLampsLow]&^lampBitsMask | byte(mask)&lampBitsMask
	b[slotLampsHigh] = b[slotLampsHigh]&^lampBitsMask | byte(mask>>6)&lampBitsMask
}

// Lamps returns the current switch-LED mask.
func (b *DisplayBuffer) Lamps() uint16 {
	return uint16(b[slotLampsLow]&lampBitsMask) |
		uint16(b[slotLampsHigh]&lampBitsMask)<<6
}

// SetWin drives the win lamp.
func (b *DisplayBuffer) SetWin(on bool) {
	if on {
		b[slotLampsLow] |= winBit
	} else {
		b[slotLampsLow] &^= winBit
	}
}

// SetLose drives the lose lamp.
func (b *DisplayBuffer) SetLose(on bool) {
	if on {
		b[slotLampsHigh] |= loseBit
	} else {
		b[slotLampsHigh] &^= loseBit
	}
}

// Win reports the win lamp state.
func (b *DisplayBuffer) Win() bool { return b[slotLampsLow]&winBit != 0 }

// Lose reports the lose lamp state.
func (b *DisplayBuffer) Lose() bool { return b[slotLampsHigh]&loseBit != 0 }
