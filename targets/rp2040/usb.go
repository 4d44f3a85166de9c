//go:build rp2040

package main

import "machine"

// InitUSB brings up USB serial. On the RP2040, machine.Serial is the
// USB CDC endpoint; descriptors come from the TinyGo runtime.
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBAvailable returns the number of bytes buffered for reading.
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte from USB.
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes data to USB, returning the count written.
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
