// Package sdspi is a block-storage protocol driver for version-2 SDHC
// cards on a synchronous serial bus.
//
// The driver frames six-byte commands, waits for token-framed responses
// under bounded attempt/time budgets and moves single 512-byte blocks. Card
// identity is negotiated by a table-driven handshake (init.go) interpreted
// by the generic sequencer engine. There is no filesystem, no wear
// leveling, no CRC verification and no multi-client bus access: one card
// generation profile, one caller.
package sdspi

import "fmt"

// Data-block framing tokens and budgets.
const (
	// BlockSize is the fixed data payload of every block transfer.
	// Transfers always move exactly this many data bytes plus two trailer
	// bytes, regardless of how many the caller asked for.
	BlockSize = 512

	tokenStartBlock = 0xFE

	writeRespMask     = 0x1F // 3-bit data-response code plus framing bits
	writeRespAccepted = 0x05

	// respAttempts bounds the receive attempts while hunting for the
	// MSB-clear response byte after a command.
	respAttempts = 9

	// Poll budgets, measured on the injected clock.
	readTokenBudgetMS = 100
	writeBusyBudgetMS = 250
)

// Clock is the injected millisecond time source used for the data-ready
// and busy-wait budgets.
type Clock interface {
	NowMS() uint32
}

// Device is the protocol driver for one card on one bus.
//
// Each logical buffer has its own named field: command bytes never share
// storage with response bytes or block data.
type Device struct {
	bus   Bus
	clock Clock

	cmdbuf [6]byte
}

// New builds a driver over the given bus and time source.
func New(bus Bus, clock Clock) *Device {
	return &Device{bus: bus, clock: clock}
}

// SendCommand transmits the six bytes of c in order. Exactly six exchanges,
// nothing more: select control and response collection are the caller's.
func (d *Device) SendCommand(c Command) {
	d.cmdbuf = c.frame()
	for _, b := range d.cmdbuf {
		d.bus.Exchange(b)
	}
}

// AwaitResponse hunts for the response byte: up to respAttempts receives
// looking for a byte with the most significant bit clear. Long responses
// capture four more bytes; short ones pad the uniform buffer with filler.
// One extra filler exchange follows the capture, giving the card eight
// clocks to release the bus before select is deasserted. Exhausting every
// attempt on MSB-set bytes returns ErrBusTimeout.
func (d *Device) AwaitResponse(long bool) (Response, error) {
	var resp Response
	for i := 0; i < respAttempts; i++ {
		b := receive(d.bus)
		if b&0x80 != 0 {
			continue
		}
		resp[0] = b
		for j := 1; j < len(resp); j++ {
			if long {
				resp[j] = receive(d.bus)
			} else {
				resp[j] = Filler
			}
		}
		receive(d.bus) // trailing clocks before deselect
		return resp, nil
	}
	return resp, ErrBusTimeout
}

// ReadBlock reads block blockNum and stores the first n of its 512 data
// bytes into buf. The remaining data bytes and the two trailer bytes are
// clocked through and discarded, so the card always sees a complete
// transfer. Select is released on every path.
func (d *Device) ReadBlock(blockNum uint32, buf []byte, n int) error {
	if n < 0 || n > BlockSize || n > len(buf) {
		return fmt.Errorf("sdspi: bad read length %d (buffer %d)", n, len(buf))
	}

	d.bus.Select(true)
	defer d.bus.Select(false)

	d.SendCommand(Command{Index: cmdReadSingleBlock, Arg: blockNum, CRC: Filler})
	resp, err := d.AwaitResponse(false)
	if err != nil {
		return err
	}
	if r1 := resp.R1() & r1ErrorMask; r1 != 0 {
		return commandError(resp.R1())
	}

	if err := d.awaitStartToken(); err != nil {
		return err
	}

	for i := 0; i < BlockSize; i++ {
		b := receive(d.bus)
		if i < n {
			buf[i] = b
		}
	}
	receive(d.bus) // two trailer bytes, never verified
	receive(d.bus)
	return nil
}

// awaitStartToken polls for the start-block token within the data-ready
// budget. Any non-filler byte other than the token is a card error token.
func (d *Device) awaitStartToken() error {
	start := d.clock.NowMS()
	for {
		b := receive(d.bus)
		if b != Filler {
			if b == tokenStartBlock {
				return nil
			}
			return ErrDataRead
		}
		if d.clock.NowMS()-start >= readTokenBudgetMS {
			return ErrBusTimeout
		}
	}
}

// WriteBlock writes the first n bytes of buf to block blockNum, padding the
// card's fixed 512-byte payload with filler. The card's three-bit data
// response is checked and the busy period is waited out under the write
// budget. Select is released on every path.
func (d *Device) WriteBlock(blockNum uint32, buf []byte, n int) error {
	if n < 0 || n > BlockSize || n > len(buf) {
		return fmt.Errorf("sdspi: bad write length %d (buffer %d)", n, len(buf))
	}

	d.bus.Select(true)
	defer d.bus.Select(false)

	d.SendCommand(Command{Index: cmdWriteSingleBlock, Arg: blockNum, CRC: Filler})
	resp, err := d.AwaitResponse(false)
	if err != nil {
		return err
	}
	if r1 := resp.R1() & r1ErrorMask; r1 != 0 {
		return commandError(resp.R1())
	}

	d.bus.Exchange(tokenStartBlock)
	for i := 0; i < BlockSize; i++ {
		if i < n {
			d.bus.Exchange(buf[i])
		} else {
			d.bus.Exchange(Filler)
		}
	}
	d.bus.Exchange(Filler) // CRC trailer, sent as filler: checking disabled
	d.bus.Exchange(Filler)

	if dr := receive(d.bus); dr&writeRespMask != writeRespAccepted {
		return ErrDataRejected
	}

	// Busy period: the card holds the line low until the write lands.
	start := d.clock.NowMS()
	for receive(d.bus) != Filler {
		if d.clock.NowMS()-start >= writeBusyBudgetMS {
			return ErrBusTimeout
		}
	}

	receive(d.bus) // final clocks before deselect
	return nil
}
