// Package link implements the framed diagnostics protocol spoken between
// the board firmware and the host console.
//
// A frame is `length, sequence, payload..., crc16 (2 bytes, big endian),
// sync (0x7E)`. The payload is a message identifier followed by
// VLQ-encoded arguments. The receiver drops to a resynchronizing state on
// any malformed frame and scans forward for the next sync byte.
package link

// Frame geometry.
const (
	FrameHeaderSize  = 2 // length + sequence
	FrameTrailerSize = 3 // crc16 + sync
	FrameLengthMin   = FrameHeaderSize + FrameTrailerSize
	FrameLengthMax   = 64

	framePosLen = 0
	framePosSeq = 1

	SyncByte = 0x7E

	// The sequence byte carries a 4-bit counter in the low nibble and a
	// fixed destination tag in the high nibble.
	SeqMask = 0x0F
	SeqDest = 0x10
)

// Diagnostic message identifiers. Arguments are VLQ encoded.
const (
	MsgPing     = 0x01 // no args; answered with MsgPong
	MsgPong     = 0x02 // no args
	MsgState    = 0x03 // lamps, moves, best
	MsgKey      = 0x04 // key code to inject as if debounced
	MsgSaveRead = 0x05 // no args; requests the save slot
	MsgSaveData = 0x06 // length-prefixed save slot bytes
	MsgLog      = 0x07 // length-prefixed text
)
