package core

// Pseudo-random source: a 16-bit Galois LFSR advanced once per tick. The
// register is shifted left; when the bit falling out of the top is set, the
// result is XORed with the tap mask. A plain LFSR cannot leave the all-zero
// state, so the first-ever advance forces the register to 1 instead.
const lfsrTapMask = 0xA011

type randomState struct {
	reg    uint16
	seeded bool
}

// stepRandom advances the generator by one LFSR step. Tick-exclusive.
func (d *Device) stepRandom() {
	if !d.rng.seeded {
		d.rng.reg = 1
		d.rng.seeded = true
		return
	}
	carry := d.rng.reg&0x8000 != 0
	d.rng.reg <<= 1
	if carry {
		d.rng.reg ^= lfsrTapMask
	}
}

// Rand returns the current LFSR register. The foreground reads this without
// synchronization: it only samples the value at reset time, and a value
// stale by one tick is inconsequential.
func (d *Device) Rand() uint16 {
	return d.rng.reg
}
