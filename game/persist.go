package game

import (
	"encoding/binary"
	"fmt"

	"puzzlebox/core"
	"puzzlebox/sdspi"
)

// Save slot layout, block 0 of the card: a 4-byte magic, then the
// scramble, winning move count and best score as big-endian 16-bit
// values. The rest of the block is ignored.
const (
	saveBlock = 0
	saveLen   = 10
)

var saveMagic = [4]byte{'P', 'Z', 'L', '1'}

// BlockStore is the slice of the card driver persistence needs.
type BlockStore interface {
	ReadBlock(block uint32, buf []byte, n int) error
	WriteBlock(block uint32, buf []byte, n int) error
}

// SaveState is the persisted game record.
type SaveState struct {
	Scramble uint16
	Moves    uint16
	Best     uint16
}

// Persist reads and writes the save slot. A nil Persist is valid and
// does nothing, which is how a missing or incompatible card degrades.
type Persist struct {
	store BlockStore
	buf   [saveLen]byte
}

// NewPersist wraps an initialized block store.
func NewPersist(store BlockStore) *Persist {
	return &Persist{store: store}
}

// Open brings up the card and returns a ready Persist. Initialization
// failure disables persistence rather than blocking play.
func Open(card *sdspi.Device) *Persist {
	if card == nil {
		return nil
	}
	if err := card.InitCard(); err != nil {
		core.Debugf("game: card init failed, persistence off: %v", err)
		return nil
	}
	return NewPersist(card)
}

// Load reads the save slot. ok is false when persistence is disabled,
// the read fails, or the slot does not carry the magic.
func (p *Persist) Load() (st SaveState, ok bool) {
	if p == nil {
		return SaveState{}, false
	}
	if err := p.store.ReadBlock(saveBlock, p.buf[:], saveLen); err != nil {
		core.Debugf("game: save load failed: %v", err)
		return SaveState{}, false
	}
	if [4]byte(p.buf[:4]) != saveMagic {
		return SaveState{}, false
	}
	st.Scramble = binary.BigEndian.Uint16(p.buf[4:])
	st.Moves = binary.BigEndian.Uint16(p.buf[6:])
	st.Best = binary.BigEndian.Uint16(p.buf[8:])
	return st, true
}

// Slot reads the raw save-slot bytes for the diagnostics console. The
// slot is small enough to travel in a single link frame; the rest of the
// block is padding and never leaves the card. A nil Persist reports an
// empty slot.
func (p *Persist) Slot() ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	if err := p.store.ReadBlock(saveBlock, p.buf[:], saveLen); err != nil {
		return nil, err
	}
	return p.buf[:], nil
}

// Store writes the save slot. A nil Persist discards the record.
func (p *Persist) Store(st SaveState) error {
	if p == nil {
		return nil
	}
	copy(p.buf[:4], saveMagic[:])
	binary.BigEndian.PutUint16(p.buf[4:], st.Scramble)
	binary.BigEndian.PutUint16(p.buf[6:], st.Moves)
	binary.BigEndian.PutUint16(p.buf[8:], st.Best)
	if err := p.store.WriteBlock(saveBlock, p.buf[:], saveLen); err != nil {
		return fmt.Errorf("write save slot: %w", err)
	}
	return nil
}
