package link

// CRC16 computes the frame checksum over the length, sequence and payload
// bytes. Shift-xor form, seeded 0xFFFF; both ends must agree byte for
// byte, so don't touch it.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}
