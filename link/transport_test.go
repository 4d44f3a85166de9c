package link

import (
	"bytes"
	"testing"
)

// capture collects every message a transport dispatches.
type capture struct {
	msgs []uint8
	args [][]byte
}

func (c *capture) handle(msg uint8, data *[]byte) error {
	c.msgs = append(c.msgs, msg)
	c.args = append(c.args, append([]byte(nil), *data...))
	*data = nil
	return nil
}

// frame builds one wire frame around the given payload.
func frame(seq uint8, payload []byte) []byte {
	f := append([]byte{uint8(len(payload) + FrameLengthMin), seq}, payload...)
	crc := CRC16(f)
	return append(f, uint8(crc>>8), uint8(crc), SyncByte)
}

func TestReceiveDispatchesValidFrame(t *testing.T) {
	var got capture
	out := NewScratchOutput()
	tr := NewTransport(out, got.handle)

	in := NewFifoBuffer(128)
	in.Write(frame(SeqDest, []byte{MsgKey, 0x19}))
	tr.Receive(in)

	if len(got.msgs) != 1 || got.msgs[0] != MsgKey {
		t.Fatalf("dispatched messages = %v, want [MsgKey]", got.msgs)
	}
	if !bytes.Equal(got.args[0], []byte{0x19}) {
		t.Errorf("args = %v, want [0x19]", got.args[0])
	}
	if !in.IsEmpty() {
		t.Error("valid frame not consumed")
	}

	// The ACK carries the next expected sequence.
	ack := out.Result()
	if len(ack) != FrameLengthMin {
		t.Fatalf("ack length = %d, want %d", len(ack), FrameLengthMin)
	}
	if ack[framePosSeq] != SeqDest|1 {
		t.Errorf("ack sequence = %#02x, want %#02x", ack[framePosSeq], SeqDest|1)
	}
}

func TestReceiveHoldsPartialFrame(t *testing.T) {
	var got capture
	tr := NewTransport(NewScratchOutput(), got.handle)

	full := frame(SeqDest, []byte{MsgPing})
	in := NewFifoBuffer(128)
	in.Write(full[:3])
	tr.Receive(in)
	if len(got.msgs) != 0 {
		t.Fatal("partial frame dispatched")
	}
	if in.Available() != 3 {
		t.Fatalf("partial frame consumed: available = %d", in.Available())
	}

	in.Write(full[3:])
	tr.Receive(in)
	if len(got.msgs) != 1 || got.msgs[0] != MsgPing {
		t.Errorf("messages after completion = %v", got.msgs)
	}
}

func TestReceiveBadCRCDesyncsAndRecovers(t *testing.T) {
	var got capture
	tr := NewTransport(NewScratchOutput(), got.handle)

	bad := frame(SeqDest, []byte{MsgPing})
	bad[2] ^= 0xFF // corrupt the payload under the CRC

	in := NewFifoBuffer(256)
	in.Write(bad)
	in.Write(frame(SeqDest, []byte{MsgKey, 0x22}))
	tr.Receive(in)

	// The corrupt frame is dropped; its trailing sync byte resynchronizes
	// the parser in time for the following frame.
	if len(got.msgs) != 1 || got.msgs[0] != MsgKey {
		t.Errorf("messages = %v, want [MsgKey]", got.msgs)
	}
}

func TestReceiveStaleSequenceAcksWithoutDispatch(t *testing.T) {
	var got capture
	out := NewScratchOutput()
	tr := NewTransport(out, got.handle)

	in := NewFifoBuffer(128)
	in.Write(frame(SeqDest|5, []byte{MsgPing}))
	tr.Receive(in)

	if len(got.msgs) != 0 {
		t.Error("out-of-sequence frame dispatched")
	}
	ack := out.Result()
	if len(ack) != FrameLengthMin || ack[framePosSeq] != SeqDest {
		t.Errorf("nak = %v, want sequence %#02x", ack, SeqDest)
	}
}

func TestHostResetRewindsSequence(t *testing.T) {
	var got capture
	resets := 0
	tr := NewTransport(NewScratchOutput(), got.handle)
	tr.SetResetCallback(func() { resets++ })

	in := NewFifoBuffer(256)
	in.Write(frame(SeqDest, []byte{MsgPing}))
	tr.Receive(in)

	// Sequence restarts at SeqDest: treated as a host reset, dispatched.
	in.Write(frame(SeqDest, []byte{MsgKey, 0x11}))
	tr.Receive(in)

	if resets != 1 {
		t.Errorf("reset callback ran %d times, want 1", resets)
	}
	if len(got.msgs) != 2 || got.msgs[1] != MsgKey {
		t.Errorf("messages = %v", got.msgs)
	}
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	// Frame a state report on one transport, receive it on another.
	out := NewScratchOutput()
	sender := NewTransport(out, nil)
	want := State{Lamps: 0x0272, Moves: 17, Best: 9}
	sender.SendState(want)

	var state State
	var parseErr error
	receiver := NewTransport(NewScratchOutput(), func(msg uint8, data *[]byte) error {
		if msg != MsgState {
			t.Fatalf("message = %#02x, want MsgState", msg)
		}
		state, parseErr = ParseState(data)
		return parseErr
	})

	in := NewFifoBuffer(256)
	in.Write(out.Result())
	receiver.Receive(in)

	if parseErr != nil {
		t.Fatalf("ParseState: %v", parseErr)
	}
	if state != want {
		t.Errorf("state = %+v, want %+v", state, want)
	}
}

func TestSaveDataRoundTrip(t *testing.T) {
	out := NewScratchOutput()
	sender := NewTransport(out, nil)
	slot := []byte{'P', 'Z', 'L', '1', 0x02, 0x72, 0, 17, 0, 9}
	sender.SendSaveData(slot)

	var got []byte
	receiver := NewTransport(NewScratchOutput(), func(msg uint8, data *[]byte) error {
		if msg != MsgSaveData {
			t.Fatalf("message = %#02x, want MsgSaveData", msg)
		}
		b, err := ParseSaveData(data)
		got = append([]byte(nil), b...)
		return err
	})

	in := NewFifoBuffer(256)
	in.Write(out.Result())
	receiver.Receive(in)

	if !bytes.Equal(got, slot) {
		t.Errorf("save slot = %v, want %v", got, slot)
	}
}

func TestEncodeFrameBacksOutOversizedPayload(t *testing.T) {
	out := NewScratchOutput()
	sender := NewTransport(out, nil)

	// A full card block cannot fit the one-byte length field. The frame
	// must vanish instead of going out with a wrapped length.
	sender.SendSaveData(make([]byte, 512))
	if got := out.Result(); len(got) != 0 {
		t.Fatalf("oversized frame emitted %d bytes, want none", len(got))
	}

	// The stream stays usable for frames that do fit.
	want := State{Lamps: 0x0111, Moves: 3, Best: 3}
	sender.SendState(want)

	var state State
	receiver := NewTransport(NewScratchOutput(), func(msg uint8, data *[]byte) error {
		if msg != MsgState {
			t.Fatalf("message = %#02x, want MsgState", msg)
		}
		var err error
		state, err = ParseState(data)
		return err
	})

	in := NewFifoBuffer(256)
	in.Write(out.Result())
	receiver.Receive(in)

	if state != want {
		t.Errorf("state = %+v, want %+v", state, want)
	}
}

func TestDispatchRecoversFromPanickingHandler(t *testing.T) {
	tr := NewTransport(NewScratchOutput(), func(msg uint8, data *[]byte) error {
		panic("handler bug")
	})

	in := NewFifoBuffer(128)
	in.Write(frame(SeqDest, []byte{MsgPing}))
	tr.Receive(in) // must not panic out

	if tr.getSynchronized() {
		t.Error("transport stayed synchronized after a handler panic")
	}
}
