// Package game implements the puzzle rules and the table-driven control
// script that sequences one game: scramble, wait for a debounced key,
// apply the move or reset, check the outcome, announce, restart.
package game

import (
	"math/bits"

	"puzzlebox/core"
)

// Status codes produced by the key-classification and outcome handlers.
// The script table branches on these with unsigned >= comparisons, so
// their ordering is load-bearing: reset requests sort above legal moves,
// legal moves above illegal ones, and a win above a loss.
const (
	statusIllegal     = 0
	statusLegal       = 2
	statusManualReset = 3
	statusRandomReset = 4

	outcomeInProgress = 0
	outcomeLost       = 1
	outcomeWon        = 2
)

// Lamp grid geometry. One lamp per switch, 3 rows of 4 columns, bit
// r*LampCols+c of the lamp mask.
const (
	LampRows = core.SwitchRows
	LampCols = 4
	LampMask = 1<<(LampRows*LampCols) - 1 // 0x0FFF
)

// Control chords. Pressing the outer two switches of a row together is
// never a move; row 0 requests a replay of the current scramble and row 1
// a fresh random one.
var (
	keyManualReset = core.KeyRowBit(0) | 1<<0 | 1<<(LampCols-1)
	keyRandomReset = core.KeyRowBit(1) | 1<<0 | 1<<(LampCols-1)
)

// MoveLimit is the losing move count. The display shows the counter on
// four digits, so the limit stays well inside them.
const MoveLimit = 250

// classifyKey maps a debounced key code to a script status. Exactly one
// row bit and one column bit make a move; the two reset chords are
// requests; anything else (chords, ghost patterns) is illegal.
func classifyKey(code uint8) uint8 {
	switch code {
	case keyManualReset:
		return statusManualReset
	case keyRandomReset:
		return statusRandomReset
	}
	rowBits := code >> 4
	colBits := code & 0x0F
	if bits.OnesCount8(rowBits) == 1 && bits.OnesCount8(colBits) == 1 {
		if colBits < 1<<LampCols {
			return statusLegal
		}
	}
	return statusIllegal
}

// lampIndex converts a legal move's key code to its lamp bit index.
func lampIndex(code uint8) int {
	row := bits.TrailingZeros8(code >> 4)
	col := bits.TrailingZeros8(code & 0x0F)
	return row*LampCols + col
}

// toggleMask returns the lamps flipped by pressing the switch under lamp
// i: the lamp itself plus its orthogonal neighbours inside the grid.
func toggleMask(i int) uint16 {
	row, col := i/LampCols, i%LampCols
	m := uint16(1) << i
	if col > 0 {
		m |= 1 << (i - 1)
	}
	if col < LampCols-1 {
		m |= 1 << (i + 1)
	}
	if row > 0 {
		m |= 1 << (i - LampCols)
	}
	if row < LampRows-1 {
		m |= 1 << (i + LampCols)
	}
	return m
}

// scrambleFrom derives a starting lamp pattern from a random sample. An
// all-out sample would be an already-won board, so one lamp is forced on.
func scrambleFrom(r uint16) uint16 {
	s := r & LampMask
	if s == 0 {
		s = 1
	}
	return s
}
