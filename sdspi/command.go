package sdspi

// Command indices used by this driver. The card is spoken to with a small
// subset of the SD native command set.
const (
	cmdGoIdleState      = 0  // software reset
	cmdSendIfCond       = 8  // interface/voltage check, distinguishes v1/v2
	cmdReadSingleBlock  = 17 // read one 512-byte block
	cmdWriteSingleBlock = 24 // write one 512-byte block
	cmdAppSendOpCond    = 41 // initialization poll (ACMD)
	cmdAppPrefix        = 55 // next command is an application command
	cmdReadOCR          = 58 // operating conditions / capacity support
)

// Fixed CRC bytes. The bus runs with card-side CRC checking disabled, so no
// checksum is ever computed: CMD0 and CMD8 carry the constants the card
// requires while still in native mode, everything else sends filler.
const (
	crcGoIdleState = 0x95
	crcSendIfCond  = 0x87
)

// cmd8Arg requests the 2.7-3.6V range with check pattern 0xAA.
const cmd8Arg = 0x000001AA

// acmd41HCS announces host support for high-capacity cards.
const acmd41HCS = 0x40000000

// Command is a fixed six-byte command frame: one index byte, a four-byte
// big-endian argument and one CRC byte.
type Command struct {
	Index byte
	Arg   uint32
	CRC   byte
}

// frame serializes the command. The frame is always exactly six bytes.
func (c Command) frame() [6]byte {
	return [6]byte{
		0x40 | c.Index&0x3F,
		byte(c.Arg >> 24),
		byte(c.Arg >> 16),
		byte(c.Arg >> 8),
		byte(c.Arg),
		c.CRC,
	}
}
