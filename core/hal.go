// Hardware abstraction interfaces for the puzzle board.
// Target-specific code (targets/rp2040, cmd/puzzlebox-sim) provides the
// implementations; core code only talks to these interfaces.
package core

// DisplayDriver drives the multiplexed LED display. Exactly one
// digit/drive-line pair is lit at a time; the tick handler cycles through
// the display slots fast enough for persistence of vision.
type DisplayDriver interface {
	// WriteDigit sets the segment (or indicator/switch-LED) pattern for the
	// currently driven slot.
	WriteDigit(pattern byte)

	// WriteDrive selects which display slot is driven. A zero value turns
	// all drive lines off.
	WriteDrive(line byte)
}

// SwitchDriver reads one row of the switch matrix.
type SwitchDriver interface {
	// ReadRow returns the pressed-column bits of the selected row.
	// Only the low nibble is meaningful.
	ReadRow(sel uint8) uint8
}

// ToneDriver controls the tone generator.
type ToneDriver interface {
	// SetToneDivider sets the frequency divider for the tone output.
	// A zero divider silences the output.
	SetToneDivider(n uint16)
}

// Hardware bundles the board collaborators consumed by core code.
type Hardware struct {
	Display  DisplayDriver
	Switches SwitchDriver
	Tone     ToneDriver
}

// Clock is the injected millisecond time source. Bus-protocol timeouts and
// tone durations are measured against it, so tests can simulate elapsed
// time without real delay.
type Clock interface {
	// NowMS returns a monotonically increasing millisecond counter.
	// Wraparound of the 32-bit value is acceptable for the bounded waits
	// used in this firmware.
	NowMS() uint32
}
