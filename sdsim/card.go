// Package sdsim simulates a version-2 SDHC card behind the sdspi bus
// interface.
//
// The simulation models the card-side command state machine: command frame
// capture, R1/R3/R7 responses, the start-block data token, write collection
// with the three-bit data response and busy bytes afterwards. Knobs exist
// to exercise the driver's retry and failure paths: response latency, the
// ACMD41 idle-poll count, rejected writes, read error tokens and
// incompatible card identities. Blocks live in memory or in a 512-byte
// aligned image file.
package sdsim

import (
	"io"
	"os"
)

const (
	blockSize = 512
	filler    = 0xFF

	tokenStart = 0xFE

	dataAccepted   = 0x05
	dataWriteError = 0x0D
)

type cardState uint8

const (
	stateIdle cardState = iota
	stateCmd
	stateData
)

// Card is a simulated SDHC card. It implements the sdspi bus interface.
// The zero-value knobs model a healthy, instantly answering card.
type Card struct {
	// RespDelay is the number of filler bytes the card shifts out before
	// each command response, exercising the host's response-attempt window.
	RespDelay int

	// IdlePolls is how many ACMD41 responses still carry the idle bit
	// before the card reports initialized.
	IdlePolls int

	// RejectWrites makes every write data-response a write-error token.
	RejectWrites bool

	// ReadErrorToken replaces the start-block token with an error token.
	ReadErrorToken bool

	// BusyBytes is the number of busy (0x00) bytes after an accepted write.
	BusyBytes int

	// Version1 models a card that rejects CMD8 (pre-2.0 card).
	Version1 bool

	// BadCheckPattern corrupts the CMD8 echo, as an out-of-range voltage
	// request would.
	BadCheckPattern bool

	// StandardCapacity clears the capacity-support bit in the OCR.
	StandardCapacity bool

	// Dead suppresses all responses (permanently busy bus).
	Dead bool

	selected bool
	state    cardState
	appCmd   bool

	cmdbuf [6]byte
	cmdlen int

	queue []byte // bytes pending to shift out

	wrblock  uint32
	wrbuf    [blockSize + 2]byte
	wrcount  int
	wrtoken  bool
	idleLeft int

	mem map[uint32]*[blockSize]byte
	img *os.File
}

// NewCard returns a memory-backed card.
func NewCard() *Card {
	return &Card{mem: make(map[uint32]*[blockSize]byte)}
}

// NewCardFile returns a card backed by a block image file. Blocks are read
// and written at offset block*512; reads past the end return zeros.
func NewCardFile(img *os.File) *Card {
	return &Card{img: img}
}

// Select implements the bus chip-select line.
func (c *Card) Select(assert bool) {
	c.selected = assert
	if !assert {
		c.cmdlen = 0
		if c.state == stateCmd {
			c.state = stateIdle
		}
	}
}

// Exchange implements the full-duplex byte exchange. The byte shifted out
// was queued before this exchange began, so a response never appears on the
// same exchange as the last byte of the command that caused it.
func (c *Card) Exchange(out byte) byte {
	if !c.selected || c.Dead {
		// A deselected or dead card never drives the line: the host reads
		// filler, which conveniently has its MSB set.
		return filler
	}
	in := c.pop()
	c.accept(out)
	return in
}

func (c *Card) pop() byte {
	if len(c.queue) == 0 {
		return filler
	}
	b := c.queue[0]
	c.queue = c.queue[1:]
	return b
}

func (c *Card) push(bytes ...byte) {
	c.queue = append(c.queue, bytes...)
}

func (c *Card) pushResponse(bytes ...byte) {
	for i := 0; i < c.RespDelay; i++ {
		c.push(filler)
	}
	c.push(bytes...)
}

func (c *Card) accept(b byte) {
	switch c.state {
	case stateIdle:
		if b&0xC0 == 0x40 {
			c.cmdbuf[0] = b
			c.cmdlen = 1
			c.state = stateCmd
		}
	case stateCmd:
		c.cmdbuf[c.cmdlen] = b
		c.cmdlen++
		if c.cmdlen == len(c.cmdbuf) {
			c.state = stateIdle
			c.handleCommand()
		}
	case stateData:
		c.acceptData(b)
	}
}

func (c *Card) handleCommand() {
	index := c.cmdbuf[0] & 0x3F
	arg := uint32(c.cmdbuf[1])<<24 | uint32(c.cmdbuf[2])<<16 |
		uint32(c.cmdbuf[3])<<8 | uint32(c.cmdbuf[4])

	app := c.appCmd
	c.appCmd = false

	switch {
	case index == 0: // GO_IDLE_STATE
		c.idleLeft = c.IdlePolls
		c.pushResponse(0x01)

	case index == 8: // SEND_IF_COND
		if c.Version1 {
			c.pushResponse(0x05) // idle + illegal command
			return
		}
		if c.BadCheckPattern {
			c.pushResponse(0x01, 0x00, 0x00, byte(arg>>8)&0x0F, ^byte(arg))
			return
		}
		c.pushResponse(0x01, 0x00, 0x00, byte(arg>>8)&0x0F, byte(arg))

	case index == 55: // APP_CMD
		c.appCmd = true
		c.pushResponse(0x01)

	case index == 41 && app: // APP_SEND_OP_COND
		if c.idleLeft > 0 {
			c.idleLeft--
			c.pushResponse(0x01)
			return
		}
		c.pushResponse(0x00)

	case index == 58: // READ_OCR
		ocr1 := byte(0x80)
		if !c.StandardCapacity {
			ocr1 |= 0x40
		}
		c.pushResponse(0x00, ocr1, 0xFF, 0x80, 0x00)

	case index == 17: // READ_SINGLE_BLOCK
		c.pushResponse(0x00)
		if c.ReadErrorToken {
			c.push(0x01) // error token in place of the data packet
			return
		}
		var data [blockSize]byte
		c.readBlock(arg, &data)
		c.push(tokenStart)
		c.push(data[:]...)
		c.push(0x00, 0x00) // crc, unused with checking disabled

	case index == 24: // WRITE_SINGLE_BLOCK
		c.pushResponse(0x00)
		c.wrblock = arg
		c.wrcount = 0
		c.wrtoken = false
		c.state = stateData

	default:
		c.pushResponse(0x04) // illegal command
	}
}

func (c *Card) acceptData(b byte) {
	if !c.wrtoken {
		if b == tokenStart {
			c.wrtoken = true
		}
		// Filler before the token is legal; a stray command byte here
		// would be a host bug and is simply ignored, as real cards do.
		return
	}
	c.wrbuf[c.wrcount] = b
	c.wrcount++
	if c.wrcount < len(c.wrbuf) {
		return
	}

	c.state = stateIdle
	if c.RejectWrites {
		c.push(dataWriteError)
		return
	}
	var data [blockSize]byte
	copy(data[:], c.wrbuf[:blockSize]) // two crc bytes discarded
	if !c.writeBlock(c.wrblock, &data) {
		// A block the image file would not take must not be answered as
		// stored.
		c.push(dataWriteError)
		return
	}
	c.push(dataAccepted)
	for i := 0; i < c.BusyBytes; i++ {
		c.push(0x00)
	}
}

func (c *Card) readBlock(block uint32, dst *[blockSize]byte) {
	if c.img != nil {
		if _, err := c.img.ReadAt(dst[:], int64(block)*blockSize); err != nil && err != io.EOF {
			// Short or failed reads leave the remainder zeroed.
			_ = err
		}
		return
	}
	if b, ok := c.mem[block]; ok {
		*dst = *b
	}
}

func (c *Card) writeBlock(block uint32, src *[blockSize]byte) bool {
	if c.img != nil {
		_, err := c.img.WriteAt(src[:], int64(block)*blockSize)
		return err == nil
	}
	b := new([blockSize]byte)
	*b = *src
	c.mem[block] = b
	return true
}

// SetBlock stores data (at most 512 bytes, zero padded) into a block,
// bypassing the bus. Test setup helper.
func (c *Card) SetBlock(block uint32, data []byte) {
	var full [blockSize]byte
	copy(full[:], data)
	c.writeBlock(block, &full)
}

// Block returns a copy of a block's contents, bypassing the bus.
func (c *Card) Block(block uint32) [blockSize]byte {
	var full [blockSize]byte
	c.readBlock(block, &full)
	return full
}
