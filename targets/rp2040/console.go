//go:build rp2040

package main

import (
	"puzzlebox/core"
	"puzzlebox/game"
	"puzzlebox/link"
)

// console answers the host diagnostics messages. It reads game state
// from the same single-threaded foreground the game script runs in, so
// it is pumped only from the script's idle hook.
type console struct {
	transport *link.Transport
	dev       *core.Device
	g         *game.Game
	save      *game.Persist
}

func (c *console) handle(msg uint8, data *[]byte) error {
	switch msg {
	case link.MsgPing:
		c.transport.SendMessage(link.MsgPong, nil)
		return nil

	case link.MsgState:
		c.transport.SendState(link.State{
			Lamps: c.g.Lamps(),
			Moves: c.g.Moves(),
			Best:  c.g.Best(),
		})
		return nil

	case link.MsgKey:
		code, err := link.ParseKey(data)
		if err != nil {
			return err
		}
		c.dev.InjectKey(code)
		return nil

	case link.MsgSaveRead:
		// Only the slot bytes travel; a full card block would overflow
		// the one-byte frame length.
		slot, err := c.save.Slot()
		if err != nil {
			return err
		}
		c.transport.SendSaveData(slot)
		return nil
	}

	// Unknown messages are acked but otherwise ignored, so a newer host
	// tool can probe an older firmware. Their argument layout is unknown,
	// so the rest of the frame is dropped with them.
	*data = nil
	return nil
}
