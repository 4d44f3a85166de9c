package sdspi

import (
	"fmt"

	"puzzlebox/seq"
)

// The SD negotiation handshake, encoded purely as data. Each row sends one
// command (or, for re-check rows, re-examines the previous response), masks
// the five response bytes and compares them to an expected value, then takes
// the match or mismatch branch. A branch either carries an error, jumps to
// another row, or jumps past the table into the terminal sentinel range.

// Terminal codes (table index - table length).
const (
	termReadySDHC = iota
	termNonCompatible
)

// Branch is one outcome of an init step's response comparison.
type Branch struct {
	Err  error // terminate negotiation with this failure
	Next int   // next row, or len(table)+terminal code
}

// InitStep is one row of the negotiation table.
type InitStep struct {
	// Recheck re-examines the previous response without resending any
	// command; Cmd and Long are ignored.
	Recheck bool

	Cmd  Command
	Long bool // expect the five-byte (R3/R7) response form

	Mask   [5]byte
	Expect [5]byte

	OnMatch    Branch
	OnMismatch Branch
}

// initTable negotiates a version-2 SDHC card:
//
//	0  CMD0   reset; zero mask, so any response matches
//	1  CMD8   voltage/version check; the illegal-command bit marks a
//	          version-1 card, classified non-compatible by the table
//	2  -      re-check of the CMD8 echo bytes (voltage range + pattern)
//	3  CMD55  application-command prefix
//	4  ACMD41 initialization poll; still idle loops back to row 3. The
//	          loop is bounded only by the surrounding boot sequence.
//	5  CMD58  capacity-support check; CCS set means SDHC
var initTable = []InitStep{
	{
		Cmd:     Command{Index: cmdGoIdleState, CRC: crcGoIdleState},
		OnMatch: Branch{Next: 1}, OnMismatch: Branch{Next: 1},
	},
	{
		Cmd:  Command{Index: cmdSendIfCond, Arg: cmd8Arg, CRC: crcSendIfCond},
		Long: true,
		Mask: [5]byte{r1IllegalCommand}, Expect: [5]byte{0},
		OnMatch:    Branch{Next: 2},
		OnMismatch: Branch{Next: lenInitTable + termNonCompatible},
	},
	{
		Recheck: true,
		Mask:    [5]byte{0, 0, 0, 0x0F, 0xFF},
		Expect:  [5]byte{0, 0, 0, 0x01, 0xAA},
		OnMatch: Branch{Next: 3}, OnMismatch: Branch{Err: errCheckPattern},
	},
	{
		Cmd:     Command{Index: cmdAppPrefix, CRC: Filler},
		OnMatch: Branch{Next: 4}, OnMismatch: Branch{Next: 4},
	},
	{
		Cmd:  Command{Index: cmdAppSendOpCond, Arg: acmd41HCS, CRC: Filler},
		Mask: [5]byte{r1Idle}, Expect: [5]byte{0},
		OnMatch:    Branch{Next: 5},
		OnMismatch: Branch{Next: 3},
	},
	{
		Cmd:  Command{Index: cmdReadOCR, CRC: Filler},
		Long: true,
		Mask: [5]byte{0xFF, ocrPowerUp | ocrCCS}, Expect: [5]byte{0, ocrPowerUp | ocrCCS},
		OnMatch:    Branch{Next: lenInitTable + termReadySDHC},
		OnMismatch: Branch{Next: lenInitTable + termNonCompatible},
	},
}

const lenInitTable = 6

// initRow binds one table row to a device so the generic engine can run it.
type initRow struct {
	step InitStep
	dev  *Device
}

func (r initRow) Run(prev Response) (Response, error) {
	if r.step.Recheck {
		return prev, nil
	}
	r.dev.bus.Select(true)
	r.dev.SendCommand(r.step.Cmd)
	resp, err := r.dev.AwaitResponse(r.step.Long)
	r.dev.bus.Select(false)
	return resp, err
}

func (r initRow) Next(resp Response) (int, error) {
	br := r.step.OnMismatch
	if resp.masked(r.step.Mask, r.step.Expect) {
		br = r.step.OnMatch
	}
	if br.Err != nil {
		return 0, br.Err
	}
	return br.Next, nil
}

// InitCard brings the card up: the power-up clock train with select
// deasserted, then the negotiation table from row 0. A response timeout
// anywhere stops negotiation as a failure.
func (d *Device) InitCard() error {
	d.bus.Select(false)
	for i := 0; i < 10; i++ { // at least 74 clocks before the first command
		d.bus.Exchange(Filler)
	}

	rows := make([]seq.Step[Response], len(initTable))
	for i, st := range initTable {
		rows[i] = initRow{step: st, dev: d}
	}
	term, err := seq.New(rows).Run()
	if err != nil {
		return err
	}
	switch term {
	case termReadySDHC:
		return nil
	case termNonCompatible:
		return ErrNonCompatibleCard
	default:
		return fmt.Errorf("sdspi: negotiation ended with unknown code %d", term)
	}
}
