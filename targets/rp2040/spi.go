//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers"
)

// cardBus puts the storage card's chip select and byte exchange behind
// the block driver's bus interface. The card tolerates the conservative
// clock; initialization requires under 400kHz anyway and the driver
// never reconfigures the bus afterwards.
type cardBus struct {
	bus drivers.SPI
	cs  machine.Pin
}

func newCardBus() (*cardBus, error) {
	err := machine.SPI1.Configure(machine.SPIConfig{
		Frequency: 400000,
		SCK:       cardSCK,
		SDO:       cardSDO,
		SDI:       cardSDI,
		Mode:      0,
	})
	if err != nil {
		return nil, err
	}

	cardCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cardCS.High()

	return &cardBus{bus: machine.SPI1, cs: cardCS}, nil
}

func (b *cardBus) Exchange(out byte) byte {
	v, err := b.bus.Transfer(out)
	if err != nil {
		// The RP2040 SPI transfer cannot fail once configured; treat an
		// error as the all-ones idle level so the protocol layer times out.
		return 0xFF
	}
	return v
}

func (b *cardBus) Select(assert bool) {
	b.cs.Set(!assert)
}
