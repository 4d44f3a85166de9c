package sdspi

import (
	"bytes"
	"errors"
	"testing"
)

// scriptBus serves a fixed sequence of received bytes and records
// everything the driver does.
type scriptBus struct {
	rx      []byte // consumed one byte per exchange; filler once empty
	sent    []byte
	selects []bool
}

func (b *scriptBus) Exchange(out byte) byte {
	b.sent = append(b.sent, out)
	if len(b.rx) == 0 {
		return Filler
	}
	v := b.rx[0]
	b.rx = b.rx[1:]
	return v
}

func (b *scriptBus) Select(assert bool) {
	b.selects = append(b.selects, assert)
}

// fakeClock advances a fixed amount per reading.
type fakeClock struct {
	now  uint32
	step uint32
}

func (c *fakeClock) NowMS() uint32 {
	v := c.now
	c.now += c.step
	return v
}

// rxScript builds a receive script of length total, filled with filler
// except for the given positional overrides.
func rxScript(total int, overrides map[int]byte) []byte {
	rx := bytes.Repeat([]byte{Filler}, total)
	for pos, v := range overrides {
		rx[pos] = v
	}
	return rx
}

func TestSendCommandExactlySixBytes(t *testing.T) {
	bus := &scriptBus{}
	dev := New(bus, &fakeClock{})

	dev.SendCommand(Command{Index: 17, Arg: 0x01020304, CRC: 0xAB})

	want := []byte{0x40 | 17, 0x01, 0x02, 0x03, 0x04, 0xAB}
	if !bytes.Equal(bus.sent, want) {
		t.Errorf("sent %#v, want %#v", bus.sent, want)
	}
}

func TestAwaitResponseWindow(t *testing.T) {
	// The response byte must be found on any of the 9 attempts, however
	// many MSB-set bytes precede it.
	for lead := 0; lead < respAttempts; lead++ {
		bus := &scriptBus{rx: rxScript(lead+1, map[int]byte{lead: 0x3C})}
		dev := New(bus, &fakeClock{})

		resp, err := dev.AwaitResponse(false)
		if err != nil {
			t.Fatalf("lead %d: AwaitResponse: %v", lead, err)
		}
		if resp.R1() != 0x3C {
			t.Errorf("lead %d: R1 = %#02x, want 0x3c", lead, resp.R1())
		}
		for i := 1; i < len(resp); i++ {
			if resp[i] != Filler {
				t.Errorf("lead %d: short response byte %d = %#02x, want filler", lead, i, resp[i])
			}
		}
		// capture attempts + the trailing filler exchange
		if got := len(bus.sent); got != lead+2 {
			t.Errorf("lead %d: %d exchanges, want %d", lead, got, lead+2)
		}
	}
}

func TestAwaitResponseTimesOutAfterNineAttempts(t *testing.T) {
	bus := &scriptBus{} // nothing but filler, MSB always set
	dev := New(bus, &fakeClock{})

	_, err := dev.AwaitResponse(false)
	if !errors.Is(err, ErrBusTimeout) {
		t.Fatalf("AwaitResponse error = %v, want ErrBusTimeout", err)
	}
	if len(bus.sent) != respAttempts {
		t.Errorf("%d exchanges, want exactly %d", len(bus.sent), respAttempts)
	}
}

func TestAwaitResponseLongForm(t *testing.T) {
	bus := &scriptBus{rx: []byte{0x01, 0xA1, 0xA2, 0xA3, 0xA4}}
	dev := New(bus, &fakeClock{})

	resp, err := dev.AwaitResponse(true)
	if err != nil {
		t.Fatalf("AwaitResponse: %v", err)
	}
	want := Response{0x01, 0xA1, 0xA2, 0xA3, 0xA4}
	if resp != want {
		t.Errorf("response = %v, want %v", resp, want)
	}
	if len(bus.sent) != 6 { // 1 status + 4 payload + trailing filler
		t.Errorf("%d exchanges, want 6", len(bus.sent))
	}
}

// readScript lays out a full CMD17 exchange: command, R1, trailing filler,
// start token, 512 data bytes and two trailer bytes.
func readScript(data []byte) []byte {
	rx := rxScript(6+1+1+1+BlockSize+2, map[int]byte{
		6: 0x00, // R1
		8: tokenStartBlock,
	})
	copy(rx[9:], data)
	return rx
}

func TestReadBlockMovesExactly512Plus2(t *testing.T) {
	data := make([]byte, BlockSize)
	for i := range data {
		data[i] = byte(i)
	}

	for _, n := range []int{0, 1, 10, 511, 512} {
		bus := &scriptBus{rx: readScript(data)}
		dev := New(bus, &fakeClock{step: 1})
		buf := make([]byte, BlockSize)

		if err := dev.ReadBlock(7, buf, n); err != nil {
			t.Fatalf("n=%d: ReadBlock: %v", n, err)
		}
		// 6 command + 1 response + 1 trailing + 1 token + 512 data + 2 trailer
		if got := len(bus.sent); got != 523 {
			t.Errorf("n=%d: %d exchanges, want 523", n, got)
		}
		if !bytes.Equal(buf[:n], data[:n]) {
			t.Errorf("n=%d: stored data differs from card data", n)
		}
		for i := n; i < BlockSize; i++ {
			if buf[i] != 0 {
				t.Errorf("n=%d: byte %d past requested length was stored", n, i)
				break
			}
		}
		wantSel := []bool{true, false}
		if len(bus.selects) != 2 || bus.selects[0] != true || bus.selects[1] != false {
			t.Errorf("n=%d: selects = %v, want %v", n, bus.selects, wantSel)
		}
	}
}

func TestReadBlockCommandFrame(t *testing.T) {
	bus := &scriptBus{rx: readScript(make([]byte, BlockSize))}
	dev := New(bus, &fakeClock{step: 1})

	if err := dev.ReadBlock(0x00010203, make([]byte, 4), 4); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	want := []byte{0x40 | 17, 0x00, 0x01, 0x02, 0x03, Filler}
	if !bytes.Equal(bus.sent[:6], want) {
		t.Errorf("command frame = %#v, want %#v", bus.sent[:6], want)
	}
}

func TestReadBlockErrorToken(t *testing.T) {
	bus := &scriptBus{rx: rxScript(16, map[int]byte{6: 0x00, 8: 0x01})}
	dev := New(bus, &fakeClock{step: 1})

	err := dev.ReadBlock(0, make([]byte, 8), 8)
	if !errors.Is(err, ErrDataRead) {
		t.Errorf("ReadBlock error = %v, want ErrDataRead", err)
	}
	if bus.selects[len(bus.selects)-1] != false {
		t.Error("select left asserted after error")
	}
}

func TestReadBlockTokenTimeout(t *testing.T) {
	bus := &scriptBus{rx: rxScript(8, map[int]byte{6: 0x00})}
	dev := New(bus, &fakeClock{step: 25}) // budget burns down in a few polls

	err := dev.ReadBlock(0, make([]byte, 8), 8)
	if !errors.Is(err, ErrBusTimeout) {
		t.Errorf("ReadBlock error = %v, want ErrBusTimeout", err)
	}
}

func TestReadBlockR1Errors(t *testing.T) {
	cases := []struct {
		r1   byte
		want error
	}{
		{0x04, ErrIllegalCommand},
		{0x40, nil}, // parameter error: any error, not a specific sentinel
	}
	for _, tc := range cases {
		bus := &scriptBus{rx: rxScript(8, map[int]byte{6: tc.r1})}
		dev := New(bus, &fakeClock{step: 1})

		err := dev.ReadBlock(0, make([]byte, 8), 8)
		if err == nil {
			t.Errorf("R1=%#02x: ReadBlock succeeded, want error", tc.r1)
			continue
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("R1=%#02x: error = %v, want %v", tc.r1, err, tc.want)
		}
	}
}

func TestReadBlockRejectsBadLength(t *testing.T) {
	dev := New(&scriptBus{}, &fakeClock{})
	if err := dev.ReadBlock(0, make([]byte, 1024), 513); err == nil {
		t.Error("n=513 accepted")
	}
	if err := dev.ReadBlock(0, make([]byte, 4), 8); err == nil {
		t.Error("n beyond buffer accepted")
	}
}

func TestWriteBlockWireSequence(t *testing.T) {
	// End-to-end: 6 command bytes, response hunt, trailing filler, start
	// token, 10 data bytes, 502 filler, 2 trailer bytes, one data-response
	// read, busy polls, one final filler exchange.
	rx := rxScript(6+1+1+1+BlockSize+2+1+2+1, map[int]byte{
		6:   0x00,        // R1
		523: 0xE0 | 0x05, // data response: accepted, upper bits junk
		524: 0x00,        // one busy byte
	})
	bus := &scriptBus{rx: rx}
	dev := New(bus, &fakeClock{step: 1})

	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if err := dev.WriteBlock(5, buf, len(buf)); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	wantCmd := []byte{0x40 | 24, 0x00, 0x00, 0x00, 0x05, Filler}
	if !bytes.Equal(bus.sent[:6], wantCmd) {
		t.Errorf("command frame = %#v, want %#v", bus.sent[:6], wantCmd)
	}
	if bus.sent[8] != tokenStartBlock {
		t.Errorf("byte 8 = %#02x, want the start-block token", bus.sent[8])
	}
	if !bytes.Equal(bus.sent[9:19], buf) {
		t.Errorf("data bytes = %#v, want %#v", bus.sent[9:19], buf)
	}
	for i := 19; i < 9+BlockSize+2; i++ {
		if bus.sent[i] != Filler {
			t.Fatalf("pad byte %d = %#02x, want filler", i, bus.sent[i])
		}
	}
	// data bytes on the wire: exactly 512 + 2 trailer, then data-response
	// read, one busy poll returning 0x00, one returning filler, one final
	// filler exchange
	if got := len(bus.sent); got != 9+BlockSize+2+1+2+1 {
		t.Errorf("%d exchanges, want %d", got, 9+BlockSize+2+1+2+1)
	}
	if bus.selects[len(bus.selects)-1] != false {
		t.Error("select left asserted after write")
	}
}

func TestWriteBlockRejected(t *testing.T) {
	rx := rxScript(6+1+1+1+BlockSize+2+1, map[int]byte{
		6:   0x00,
		523: 0x0D, // write-error data response
	})
	bus := &scriptBus{rx: rx}
	dev := New(bus, &fakeClock{step: 1})

	err := dev.WriteBlock(5, make([]byte, 16), 16)
	if !errors.Is(err, ErrDataRejected) {
		t.Errorf("WriteBlock error = %v, want ErrDataRejected", err)
	}
}

func TestWriteBlockBusyTimeout(t *testing.T) {
	// Accepted, but the card never releases the busy line.
	total := 6 + 1 + 1 + 1 + BlockSize + 2 + 1 + 64
	over := map[int]byte{6: 0x00, 523: 0x05}
	for i := 524; i < total; i++ {
		over[i] = 0x00
	}
	bus := &scriptBus{rx: rxScript(total, over)}
	dev := New(bus, &fakeClock{step: 25})

	err := dev.WriteBlock(5, make([]byte, 16), 16)
	if !errors.Is(err, ErrBusTimeout) {
		t.Errorf("WriteBlock error = %v, want ErrBusTimeout", err)
	}
}
