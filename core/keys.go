package core

// IsKeyAvailable reports whether a debounced key is latched and waiting.
func (d *Device) IsKeyAvailable() bool {
	d.keys.lock()
	have := d.deb.haveKey
	d.keys.unlock()
	return have
}

// TakeKey reads and clears the latched key. The read of the code and the
// clear of the flag happen inside one critical section so a tick firing in
// between cannot be lost or double-delivered.
func (d *Device) TakeKey() (uint8, bool) {
	d.keys.lock()
	code, have := d.deb.keyCode, d.deb.haveKey
	d.deb.haveKey = false
	d.keys.unlock()
	return code, have
}

// InjectKey latches a key code as if the debouncer produced it. The
// diagnostics link uses it to drive the game from the host.
func (d *Device) InjectKey(code uint8) {
	d.keys.lock()
	d.deb.haveKey = true
	d.deb.keyCode = code
	d.keys.unlock()
}

// WaitKey blocks until a debounced key is available and consumes it. There
// is deliberately no timeout: the game's input model waits forever for the
// player.
func (d *Device) WaitKey() uint8 {
	for {
		if code, ok := d.TakeKey(); ok {
			return code
		}
		d.idle()
	}
}
