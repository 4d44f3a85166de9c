package link

import (
	"bytes"
	"testing"
)

func TestCRC16KnownValues(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(nil) = %#04x, want seed 0xFFFF", got)
	}
	if CRC16([]byte{0x01, 0x02, 0x03}) == CRC16([]byte{0x01, 0x02, 0x04}) {
		t.Error("single-bit difference did not change the CRC")
	}
	data := []byte{FrameLengthMin, SeqDest}
	if CRC16(data) != CRC16(data) {
		t.Error("CRC16 not deterministic")
	}
}

func TestVLQIntRoundTrip(t *testing.T) {
	cases := []int32{
		0, 1, -1, 31, 32, -32, -33, 127, 128, -128,
		1000, -1000, 65535, -65535, 1 << 20, -(1 << 20), 1 << 28,
	}
	for _, want := range cases {
		output := NewScratchOutput()
		EncodeInt(output, want)
		data := output.Result()

		got, err := DecodeInt(&data)
		if err != nil {
			t.Errorf("DecodeInt(%d): %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("round trip of %d produced %d (wire %v)", want, got, output.Result())
		}
		if len(data) != 0 {
			t.Errorf("decode of %d left %d bytes unconsumed", want, len(data))
		}
	}
}

func TestVLQUintRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 96, 127, 128, 0x19, 0xFFFF, 1 << 24}
	for _, want := range cases {
		output := NewScratchOutput()
		EncodeUint(output, want)
		data := output.Result()

		got, err := DecodeUint(&data)
		if err != nil {
			t.Errorf("DecodeUint(%d): %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("round trip of %d produced %d", want, got)
		}
	}
}

func TestVLQBytesRoundTrip(t *testing.T) {
	cases := [][]byte{{}, {0x01}, {0xFF, 0xFE, 0xFD}, make([]byte, 50)}
	for i, want := range cases {
		output := NewScratchOutput()
		EncodeBytes(output, want)
		data := output.Result()

		got, err := DecodeBytes(&data)
		if err != nil {
			t.Errorf("case %d: DecodeBytes: %v", i, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("case %d: round trip produced %v, want %v", i, got, want)
		}
	}
}

func TestVLQStringRoundTrip(t *testing.T) {
	for _, want := range []string{"", "save", "lamps=0x0272 moves=17"} {
		output := NewScratchOutput()
		EncodeString(output, want)
		data := output.Result()

		got, err := DecodeString(&data)
		if err != nil {
			t.Errorf("DecodeString(%q): %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("round trip of %q produced %q", want, got)
		}
	}
}

func TestVLQTruncated(t *testing.T) {
	data := []byte{0x80} // continuation flag with nothing following
	if _, err := DecodeInt(&data); err != ErrShortBuffer {
		t.Errorf("truncated VLQ: err = %v, want ErrShortBuffer", err)
	}

	data = []byte{0x05, 0x01} // length prefix 5, one payload byte present
	if _, err := DecodeBytes(&data); err != ErrShortBuffer {
		t.Errorf("truncated byte field: err = %v, want ErrShortBuffer", err)
	}
}
