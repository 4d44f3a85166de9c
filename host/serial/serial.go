// Package serial wraps host-side serial port access for the puzzle
// board's diagnostics link.
package serial

import "io"

// Port is the serial connection the link transport runs over. The
// native implementation uses github.com/tarm/serial; tests substitute
// an in-memory pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush pushes any buffered outgoing data to the wire.
	Flush() error
}

// Config holds serial port parameters.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	// Baud rate. The board enumerates as USB CDC, which ignores it, but
	// UART-bridge setups need it to match the board's debug UART.
	Baud int

	// ReadTimeout in milliseconds; 0 blocks.
	ReadTimeout int
}

// DefaultConfig returns the parameters the board's debug link expects.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
