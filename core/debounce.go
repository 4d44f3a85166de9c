package core

// Switch-matrix debouncing. The tick handler scans one row per tick; a key
// pattern must stay stable for DebounceTicks consecutive scans of its row
// before it is latched for the foreground.
const (
	// SwitchRows is the number of rows in the switch matrix.
	SwitchRows = 3

	// DebounceTicks is the number of consecutive stable row scans required
	// before a pressed pattern is accepted.
	DebounceTicks = 8

	// rowBitBase is the row-select bit encoded into key codes. Row r
	// contributes rowBitBase<<r; column bits occupy the low nibble.
	rowBitBase = 0x10

	colMask = 0x0F
)

// debounceState holds the working fields of the row scanner. All fields are
// tick-exclusive except the latch pair at the bottom, which is shared with
// the foreground under the device critical section.
type debounceState struct {
	scannedRow  uint8
	counter     uint8
	lastPattern uint8

	haveKey bool
	keyCode uint8
}

// KeyRowBit returns the row-select bit for row r as it appears in key codes.
func KeyRowBit(r uint8) uint8 { return rowBitBase << r }

// KeyCode builds the code for a single pressed switch at row r, column c.
func KeyCode(r, c uint8) uint8 { return KeyRowBit(r) | 1<<c }

// stepDebounce advances the scan by one row. Must run inside the tick
// handler only.
func (d *Device) stepDebounce() {
	row := d.deb.scannedRow
	cols := d.hw.Switches.ReadRow(row) & colMask

	if cols == 0 {
		// Nothing down in this row: restart the count and move on.
		d.deb.counter = DebounceTicks
		d.deb.lastPattern = 0
		d.deb.scannedRow++
		if d.deb.scannedRow >= SwitchRows {
			d.deb.scannedRow = 0
		}
		return
	}

	code := KeyRowBit(row) | cols
	if code != d.deb.lastPattern {
		// Newly observed pattern. This scan already counts as one stable
		// observation, so the counter starts one below the threshold.
		d.deb.lastPattern = code
		d.deb.counter = DebounceTicks - 1
		return
	}

	if d.deb.counter > 0 {
		d.deb.counter--
		if d.deb.counter == 0 {
			d.keys.lock()
			d.deb.haveKey = true
			d.deb.keyCode = code
			d.keys.unlock()
		}
	}
	// counter stays clamped at zero while the switch is held
}
