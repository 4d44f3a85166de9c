//go:build rp2040

package main

import "machine"

// matrixSwitches reads the 3x4 switch matrix. Row selects drive high,
// column returns are pulled down, so a pressed switch reads high on its
// column while its row is selected.
type matrixSwitches struct {
	rows [3]machine.Pin
	cols [4]machine.Pin
}

func newMatrixSwitches() *matrixSwitches {
	s := &matrixSwitches{}
	for i := range s.rows {
		s.rows[i] = machine.Pin(rowBase + i)
		s.rows[i].Configure(machine.PinConfig{Mode: machine.PinOutput})
		s.rows[i].Low()
	}
	for i := range s.cols {
		s.cols[i] = machine.Pin(colBase + i)
		s.cols[i].Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	}
	return s
}

func (s *matrixSwitches) ReadRow(sel uint8) uint8 {
	if int(sel) >= len(s.rows) {
		return 0
	}
	s.rows[sel].High()

	// One settle read before the one that counts; the row line and the
	// switch contacts need a moment after the select edge.
	_ = s.cols[0].Get()

	var bits uint8
	for i, col := range s.cols {
		if col.Get() {
			bits |= 1 << i
		}
	}
	s.rows[sel].Low()
	return bits
}
