//go:build rp2040

package pio

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO program for the display scan. Each FIFO word carries one packed
// segment/drive pattern; the state machine parks on the pull until the
// next tick pushes a word.
//
//	.wrap_target
//	pull block
//	out pins, 15
//	.wrap
func buildScanProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),
		asm.Out(rp2pio.OutDestPins, scanPinCount).Encode(),
	}
}

const (
	scanPinCount  = 15
	scanPIOOrigin = 0
)

// PIOScanner drives the display pins from a PIO state machine, so the
// multiplex update costs the tick handler a single FIFO write.
type PIOScanner struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	basePin machine.Pin
	offset  uint8
}

// newPIOScanner claims a state machine on PIO0, or returns nil when
// none is free.
func newPIOScanner() *PIOScanner {
	pioHW := rp2pio.PIO0
	for smNum := uint8(0); smNum < 4; smNum++ {
		sm := pioHW.StateMachine(smNum)
		if sm.TryClaim() {
			return &PIOScanner{pio: pioHW, sm: sm}
		}
	}
	return nil
}

// Init loads the scan program and points the state machine at the pins.
func (s *PIOScanner) Init(basePin uint8) error {
	s.basePin = machine.Pin(basePin)

	program := buildScanProgram()
	offset, err := s.pio.AddProgram(program, scanPIOOrigin)
	if err != nil {
		return err
	}
	s.offset = offset

	for i := uint8(0); i < scanPinCount; i++ {
		machine.Pin(basePin + i).Configure(machine.PinConfig{Mode: s.pio.PinMode()})
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(s.basePin, scanPinCount)

	// Shift right, no autopull: the program pulls explicitly per word.
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	s.sm.Init(offset, cfg)

	// Pin directions must be set after Init.
	s.sm.SetPindirsConsecutive(s.basePin, scanPinCount, true)
	s.sm.SetPinsConsecutive(s.basePin, scanPinCount, false)

	s.sm.SetEnabled(true)
	return nil
}

// Output pushes one scan word. A full FIFO means earlier words are
// still pending; dropping this one only delays the slot by a tick.
func (s *PIOScanner) Output(word uint32) {
	if s.sm.IsTxFIFOFull() {
		return
	}
	s.sm.TxPut(word)
}
