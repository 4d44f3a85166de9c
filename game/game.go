package game

import (
	"sync"

	"puzzlebox/core"
)

// Game owns the per-round state the script handlers mutate. The script
// engine is the only caller of the handlers; mu covers the fields the
// accessors expose to other goroutines (the simulator and the
// diagnostics console). scramble, ind and lastKey never leave the
// script goroutine.
type Game struct {
	dev  *core.Device
	snd  *core.Sound
	save *Persist

	mu       sync.Mutex
	lamps    uint16
	moves    uint16
	best     uint16
	scramble uint16
	ind      byte
	lastKey  uint8
}

// New builds a game over the device. save may be nil when the storage
// card is absent or failed to initialize; play proceeds without it.
func New(dev *core.Device, snd *core.Sound, save *Persist) *Game {
	return &Game{dev: dev, snd: snd, save: save}
}

// refresh pushes the counter and lamp pattern to the display buffer.
// SetLamps leaves the win/lose bits alone, those are driven by the
// announce handlers.
func (g *Game) refresh() {
	g.dev.UpdateDisplay(func(b *core.DisplayBuffer) {
		b.SetNumber(g.moves)
		b.SetLamps(g.lamps)
		b.SetIndicators(g.ind)
	})
}

func (g *Game) start() uint8 {
	if st, ok := g.save.Load(); ok {
		g.scramble = scrambleFrom(st.Scramble)
		g.mu.Lock()
		g.best = st.Best
		g.mu.Unlock()
		g.ind |= core.IndCardReady
	} else {
		g.scramble = scrambleFrom(g.dev.Rand())
	}
	g.resetBoard(g.scramble)
	return statusLegal
}

func (g *Game) waitClassify() uint8 {
	g.lastKey = g.dev.WaitKey()
	core.Debugf("game: key %#02x", g.lastKey)
	return classifyKey(g.lastKey)
}

func (g *Game) applyMove() uint8 {
	g.mu.Lock()
	g.lamps ^= toggleMask(lampIndex(g.lastKey))
	g.moves++
	g.mu.Unlock()
	g.refresh()
	return statusLegal
}

func (g *Game) checkGameOver() uint8 {
	if g.lamps == 0 {
		return outcomeWon
	}
	if g.moves >= MoveLimit {
		return outcomeLost
	}
	return outcomeInProgress
}

func (g *Game) warn() uint8 {
	g.snd.Warn()
	return statusIllegal
}

// resetBoard starts a round from the given scramble and clears any
// outcome annunciation left from the previous one.
func (g *Game) resetBoard(scramble uint16) {
	g.scramble = scramble
	g.mu.Lock()
	g.lamps = scramble
	g.moves = 0
	g.mu.Unlock()
	g.ind &^= core.IndGameOver
	g.dev.UpdateDisplay(func(b *core.DisplayBuffer) {
		b.SetWin(false)
		b.SetLose(false)
	})
	g.refresh()
}

func (g *Game) manualReset() uint8 {
	g.resetBoard(g.scramble)
	return statusManualReset
}

func (g *Game) randomReset() uint8 {
	g.resetBoard(scrambleFrom(g.dev.Rand()))
	return statusRandomReset
}

func (g *Game) announceWin() uint8 {
	g.ind |= core.IndGameOver
	g.mu.Lock()
	if g.best == 0 || g.moves < g.best {
		g.best = g.moves
		g.ind |= core.IndBestScore
	}
	g.mu.Unlock()
	g.dev.UpdateDisplay(func(b *core.DisplayBuffer) { b.SetWin(true) })
	g.refresh()
	if err := g.save.Store(SaveState{Scramble: g.scramble, Moves: g.moves, Best: g.best}); err != nil {
		core.Debugf("game: save failed: %v", err)
	}
	g.snd.Win()
	return outcomeWon
}

func (g *Game) announceLose() uint8 {
	g.ind |= core.IndGameOver
	g.dev.UpdateDisplay(func(b *core.DisplayBuffer) { b.SetLose(true) })
	g.refresh()
	g.snd.Lose()
	return outcomeLost
}

// Lamps reports the current lamp pattern. Safe to call while the
// script runs on another goroutine.
func (g *Game) Lamps() uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lamps
}

// Moves reports the current move counter. Safe to call while the
// script runs on another goroutine.
func (g *Game) Moves() uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.moves
}

// Best reports the best (lowest) winning move count seen, 0 when none.
func (g *Game) Best() uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.best
}
