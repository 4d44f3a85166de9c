package link

import "sync/atomic"

// MessageHandler processes one decoded message. data points at the
// remaining frame payload; the handler consumes its arguments from it.
type MessageHandler func(msg uint8, data *[]byte) error

// Transport frames outgoing messages and parses incoming ones. The
// receive path acknowledges every frame with the next expected sequence,
// which doubles as a NAK when a frame was dropped or corrupt.
type Transport struct {
	synchronized uint32 // atomic bool
	nextSequence uint32 // atomic, holds SeqDest|counter

	output  OutputBuffer
	handler MessageHandler

	resetCallback func() // host restarted its sequence
	flushCallback func() // push an ACK to the wire immediately
}

// NewTransport returns a synchronized transport writing frames to output
// and dispatching received messages to handler.
func NewTransport(output OutputBuffer, handler MessageHandler) *Transport {
	return &Transport{
		synchronized: 1,
		nextSequence: SeqDest,
		output:       output,
		handler:      handler,
	}
}

// Receive consumes buffered wire bytes, dispatching every complete valid
// frame. Partial frames stay buffered; malformed ones desynchronize the
// parser until the next sync byte.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.getSynchronized() {
			syncPos := -1
			for i, b := range data {
				if b == SyncByte {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			t.setSynchronized(true)
			t.sendAck()
			continue
		}

		if data[0] == SyncByte {
			data = data[1:]
			continue
		}
		if len(data) < FrameLengthMin {
			break
		}

		frameLen := int(data[framePosLen])
		if frameLen < FrameLengthMin || frameLen > FrameLengthMax {
			t.setSynchronized(false)
			continue
		}
		seq := data[framePosSeq]
		if seq&^SeqMask != SeqDest {
			t.setSynchronized(false)
			continue
		}
		if len(data) < frameLen {
			break
		}
		if data[frameLen-1] != SyncByte {
			t.setSynchronized(false)
			continue
		}
		wireCRC := uint16(data[frameLen-FrameTrailerSize])<<8 |
			uint16(data[frameLen-FrameTrailerSize+1])
		if wireCRC != CRC16(data[:frameLen-FrameTrailerSize]) {
			t.setSynchronized(false)
			continue
		}

		payload := data[FrameHeaderSize : frameLen-FrameTrailerSize]
		data = data[frameLen:]

		expected := uint8(atomic.LoadUint32(&t.nextSequence))
		if seq == SeqDest && expected != SeqDest {
			// Host restarted; fall back in step with it.
			atomic.StoreUint32(&t.nextSequence, SeqDest)
			expected = SeqDest
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}

		if seq == expected {
			next := ((seq + 1) & SeqMask) | SeqDest
			atomic.StoreUint32(&t.nextSequence, uint32(next))
			_ = t.dispatch(payload)
		}
		// Acknowledge either way; a stale sequence makes this a NAK
		// carrying the sequence we actually expect.
		t.sendAck()
	}

	if consumed := input.Available() - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

// dispatch decodes the messages packed into one frame payload.
func (t *Transport) dispatch(payload []byte) (err error) {
	defer func() {
		// A panicking handler must not take the firmware down; drop the
		// link to resync instead.
		if r := recover(); r != nil {
			t.setSynchronized(false)
		}
	}()

	for len(payload) > 0 {
		msg, err := DecodeUint(&payload)
		if err != nil {
			t.setSynchronized(false)
			return err
		}
		if t.handler != nil {
			if err := t.handler(uint8(msg), &payload); err != nil {
				return err
			}
		}
	}
	return nil
}

// sendAck emits the minimal frame carrying only the expected sequence.
// It goes to the wire immediately when a flush callback is set, since
// the host blocks on the ACK before reading responses.
func (t *Transport) sendAck() {
	ns := uint8(atomic.LoadUint32(&t.nextSequence))
	crc := CRC16([]byte{FrameLengthMin, ns})

	t.output.Output([]byte{
		FrameLengthMin,
		ns,
		uint8(crc >> 8),
		uint8(crc),
		SyncByte,
	})

	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame appends one frame whose payload is written by body. The
// length byte is patched in after the payload size is known; a payload
// that would overflow the one-byte length field is backed out entirely,
// since a wrapped length byte would corrupt the whole stream.
func (t *Transport) EncodeFrame(body func(output OutputBuffer)) {
	cursor := t.output.CurPosition()
	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	t.output.Output([]byte{0, seq})

	body(t.output)

	frameLen := len(t.output.DataSince(cursor)) + FrameTrailerSize
	if frameLen > FrameLengthMax {
		t.output.Truncate(cursor)
		return
	}
	t.output.Update(cursor, uint8(frameLen))

	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{uint8(crc >> 8), uint8(crc), SyncByte})
}

// SendMessage frames one message with VLQ-encoded arguments.
func (t *Transport) SendMessage(msg uint8, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeUint(output, uint32(msg))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns the transport to its initial synchronized state, for
// wire reconnects.
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.synchronized, 1)
	atomic.StoreUint32(&t.nextSequence, SeqDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback registers a function run when the far end restarts.
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback registers a function that pushes pending output to the
// wire; it runs after every ACK.
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

func (t *Transport) getSynchronized() bool {
	return atomic.LoadUint32(&t.synchronized) != 0
}

func (t *Transport) setSynchronized(val bool) {
	var v uint32
	if val {
		v = 1
	}
	atomic.StoreUint32(&t.synchronized, v)
}
