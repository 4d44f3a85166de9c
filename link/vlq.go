package link

import "errors"

var (
	// ErrShortBuffer reports a truncated VLQ or length-prefixed field.
	ErrShortBuffer = errors.New("link: buffer too small")
)

// EncodeInt writes v in the variable-length quantity form used for all
// frame arguments: 7 value bits per byte, most significant group first,
// continuation flag in bit 7. The range tests pick the shortest encoding
// that still sign-extends correctly on decode.
func EncodeInt(output OutputBuffer, v int32) {
	if !(-(1<<26) <= v && v < (3<<26)) {
		output.Output([]byte{byte((v>>28)&0x7F) | 0x80})
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		output.Output([]byte{byte((v>>21)&0x7F) | 0x80})
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		output.Output([]byte{byte((v>>14)&0x7F) | 0x80})
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		output.Output([]byte{byte((v>>7)&0x7F) | 0x80})
	}
	output.Output([]byte{byte(v & 0x7F)})
}

// EncodeUint writes v as a VLQ.
func EncodeUint(output OutputBuffer, v uint32) {
	EncodeInt(output, int32(v))
}

// DecodeInt reads one VLQ integer and advances *data past it.
func DecodeInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrShortBuffer
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	if (c & 0x60) == 0x60 { // negative: sign-extend the 5 value bits
		v |= ^uint32(0x1F)
	}

	for c&0x80 != 0 {
		if len(*data) == 0 {
			return 0, ErrShortBuffer
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = (v << 7) | (c & 0x7F)
	}

	return int32(v), nil
}

// DecodeUint reads one VLQ integer as unsigned.
func DecodeUint(data *[]byte) (uint32, error) {
	v, err := DecodeInt(data)
	return uint32(v), err
}

// EncodeBytes writes a length-prefixed byte field.
func EncodeBytes(output OutputBuffer, data []byte) {
	EncodeUint(output, uint32(len(data)))
	output.Output(data)
}

// DecodeBytes reads a length-prefixed byte field. The returned slice
// aliases *data.
func DecodeBytes(data *[]byte) ([]byte, error) {
	n, err := DecodeUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < n {
		return nil, ErrShortBuffer
	}
	field := (*data)[:n]
	*data = (*data)[n:]
	return field, nil
}

// EncodeString writes a length-prefixed string field.
func EncodeString(output OutputBuffer, s string) {
	EncodeBytes(output, []byte(s))
}

// DecodeString reads a length-prefixed string field.
func DecodeString(data *[]byte) (string, error) {
	field, err := DecodeBytes(data)
	if err != nil {
		return "", err
	}
	return string(field), nil
}
