// Package board is the host-side client for a connected puzzle board:
// it opens the serial link and exposes the diagnostics operations.
package board

import (
	"fmt"
	"time"

	"puzzlebox/host/serial"
	"puzzlebox/link"
)

// Board is a connection to the device's diagnostics console.
type Board struct {
	transport *link.HostTransport
	port      serial.Port
	connected bool

	// Logs receives MsgLog lines from the firmware.
	Logs chan string
}

// New returns an unconnected board handle.
func New() *Board {
	return &Board{Logs: make(chan string, 32)}
}

// Connect opens the serial device with default link parameters.
func (b *Board) Connect(device string) error {
	return b.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens the board over a custom serial config.
func (b *Board) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	b.port = port
	b.transport = link.NewHostTransport(port)
	b.transport.SetHandler(b.handleAsync)
	b.connected = true

	// Give the firmware a moment if the open reset it.
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Close shuts the link down.
func (b *Board) Close() error {
	b.connected = false
	if b.transport != nil {
		return b.transport.Close()
	}
	return nil
}

// IsConnected reports whether Connect succeeded.
func (b *Board) IsConnected() bool {
	return b.connected
}

func (b *Board) handleAsync(msg uint8, data *[]byte) error {
	if msg != link.MsgLog {
		return nil
	}
	text, err := link.ParseLog(data)
	if err != nil {
		return err
	}
	select {
	case b.Logs <- text:
	default:
	}
	return nil
}

// Ping checks the link round trip.
func (b *Board) Ping() error {
	if err := b.send(link.MsgPing, nil); err != nil {
		return err
	}
	_, err := b.waitFor(link.MsgPong)
	return err
}

// State requests and returns the current game snapshot.
func (b *Board) State() (link.State, error) {
	if err := b.send(link.MsgState, nil); err != nil {
		return link.State{}, err
	}
	payload, err := b.waitFor(link.MsgState)
	if err != nil {
		return link.State{}, err
	}
	return link.ParseState(&payload)
}

// InjectKey makes the firmware treat code as a debounced key press.
func (b *Board) InjectKey(code uint8) error {
	return b.send(link.MsgKey, func(output link.OutputBuffer) {
		link.EncodeUint(output, uint32(code))
	})
}

// SaveSlot fetches the raw save slot bytes from the card.
func (b *Board) SaveSlot() ([]byte, error) {
	if err := b.send(link.MsgSaveRead, nil); err != nil {
		return nil, err
	}
	payload, err := b.waitFor(link.MsgSaveData)
	if err != nil {
		return nil, err
	}
	return link.ParseSaveData(&payload)
}

func (b *Board) send(msg uint8, args func(output link.OutputBuffer)) error {
	if !b.connected {
		return fmt.Errorf("board: not connected")
	}
	return b.transport.SendMessage(msg, args)
}

// waitFor discards unrelated report frames until one carrying want
// arrives, and returns its argument bytes.
func (b *Board) waitFor(want uint8) ([]byte, error) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("board: no %#02x report before deadline", want)
		}
		frame, err := b.transport.WaitFrame(remaining)
		if err != nil {
			return nil, err
		}
		payload := frame.Payload
		msg, err := link.DecodeUint(&payload)
		if err != nil {
			continue
		}
		if uint8(msg) == want {
			return payload, nil
		}
	}
}
