//go:build rp2040

package main

import (
	"machine"
	"time"

	"puzzlebox/core"
	"puzzlebox/game"
	"puzzlebox/link"
	"puzzlebox/sdspi"
)

var (
	inputBuffer  *link.FifoBuffer
	outputBuffer *link.ScratchOutput
	transport    *link.Transport

	linkErrors uint32
)

func main() {
	// Disable the watchdog first thing so state from a watchdog reset
	// cannot persist into this boot.
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()

	clock := timerClock{}

	display, err := newScanDisplay()
	if err != nil {
		return
	}
	tone, err := newPWMTone()
	if err != nil {
		return
	}

	dev := core.NewDevice(core.Hardware{
		Display:  display,
		Switches: newMatrixSwitches(),
		Tone:     tone,
	})

	var card *sdspi.Device
	if bus, err := newCardBus(); err == nil {
		card = sdspi.New(bus, clock)
	}
	save := game.Open(card)

	snd := core.NewSound(dev, clock)
	g := game.New(dev, snd, save)

	inputBuffer = link.NewFifoBuffer(256)
	outputBuffer = link.NewScratchOutput()

	cons := &console{dev: dev, g: g, save: save}
	transport = link.NewTransport(outputBuffer, cons.handle)
	cons.transport = transport

	transport.SetResetCallback(func() {
		// Host restarted: drop anything in flight.
		inputBuffer.Reset()
		outputBuffer.Reset()
	})

	// The host blocks on the ACK before reading responses, so ACKs go to
	// the wire immediately.
	transport.SetFlushCallback(writeUSB)

	core.SetDebugWriter(func(s string) {
		transport.SendLog(s)
		writeUSB()
	})

	go tickLoop(dev)
	go usbReaderLoop()

	// The foreground spends nearly all its time in WaitKey; pumping the
	// link from the idle hook keeps the console responsive without a
	// second foreground thread.
	dev.SetIdleFunc(pumpLink)

	for {
		runGame(g)
	}
}

// runGame drives the script, recovering from panics so a bug in a move
// handler degrades into a fresh game instead of a dead board.
func runGame(g *game.Game) {
	defer func() {
		if r := recover(); r != nil {
			linkErrors++
			inputBuffer.Reset()
			outputBuffer.Reset()
			time.Sleep(100 * time.Millisecond)
		}
	}()
	g.RunLoop()
}

// tickLoop is the 1ms tick source: display multiplex, switch scan,
// random advance.
func tickLoop(dev *core.Device) {
	for {
		dev.Tick()
		time.Sleep(time.Millisecond)
	}
}

// pumpLink processes pending console traffic. Runs on the foreground
// via the idle hook, never concurrently with game handlers.
func pumpLink() {
	if inputBuffer.Available() > 0 {
		transport.Receive(inputBuffer)
	}
	writeUSB()
	time.Sleep(100 * time.Microsecond)
}

// usbReaderLoop feeds USB bytes into the receive FIFO.
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			linkErrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			b, err := USBRead()
			if err != nil {
				linkErrors++
				time.Sleep(time.Millisecond)
				continue
			}
			if inputBuffer.Write([]byte{b}) == 0 {
				// FIFO full; drop and let the transport resync.
				linkErrors++
				time.Sleep(10 * time.Millisecond)
			}
			continue
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB drains the output buffer to the wire, tolerating partial
// writes.
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Likely a disconnect; stale output is useless to a host
			// that reconnects later.
			linkErrors++
			outputBuffer.Reset()
			return
		}
		written += n
	}
	outputBuffer.Reset()
}
