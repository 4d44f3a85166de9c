//go:build rp2040

package main

import (
	"puzzlebox/targets/pio"
)

// scanDisplay adapts a scan backend to the core display interface. The
// tick handler writes the segment pattern first and the drive selection
// second, so the segment byte is buffered and the pair goes to the pins
// as one word on the drive write.
type scanDisplay struct {
	scanner  pio.Scanner
	segments byte
}

func newScanDisplay() (*scanDisplay, error) {
	d := &scanDisplay{scanner: pio.NewScanner()}
	if err := d.scanner.Init(segBase); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *scanDisplay) WriteDigit(pattern byte) {
	d.segments = pattern
}

func (d *scanDisplay) WriteDrive(line byte) {
	d.scanner.Output(pio.ScanWord(line, d.segments))
}
