package core

import "fmt"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	// debugPrintln is the global debug print function (set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false
)

// SetDebugWriter sets the platform-specific debug output function.
// This allows platforms to redirect debug output to UART, USB, stdout, etc.
func SetDebugWriter(writer DebugWriter) {
	if writer != nil {
		debugPrintln = writer
	}
}

// SetDebugEnabled turns debug output on or off.
func SetDebugEnabled(on bool) {
	debugEnabled = on
}

// Debugf formats and writes a debug message when debugging is enabled.
func Debugf(format string, args ...interface{}) {
	if debugEnabled {
		debugPrintln(fmt.Sprintf(format, args...))
	}
}
