package game

import "puzzlebox/seq"

// Script step indices. The table below is the whole game: every status a
// handler produces flows through at most two unsigned >= comparisons to
// pick the next step. Re-check rows (nil handler) re-test the previous
// result against a second threshold without running anything.
const (
	stepStart = iota
	stepWaitKey
	stepMoveCheck
	stepApply
	stepOutcome
	stepLostCheck
	stepWarn
	stepResetCheck
	stepManual
	stepRandom
	stepWinner
	stepLoser
)

type scriptRow struct {
	handler func(*Game) uint8 // nil marks a re-check row
	cmp     uint8
	ge, lt  int
}

var script = []scriptRow{
	stepStart:   {(*Game).start, 0, stepWaitKey, stepWaitKey},
	stepWaitKey: {(*Game).waitClassify, statusManualReset, stepResetCheck, stepMoveCheck},
	// statusLegal vs statusIllegal on the classification just made.
	stepMoveCheck: {nil, 1, stepApply, stepWarn},
	stepApply:     {(*Game).applyMove, 0, stepOutcome, stepOutcome},
	stepOutcome:   {(*Game).checkGameOver, outcomeWon, stepWinner, stepLostCheck},
	// outcomeLost vs outcomeInProgress on the outcome just computed.
	stepLostCheck: {nil, outcomeLost, stepLoser, stepWaitKey},
	stepWarn:      {(*Game).warn, 0, stepWaitKey, stepWaitKey},
	// statusRandomReset vs statusManualReset on the classification.
	stepResetCheck: {nil, statusRandomReset, stepRandom, stepManual},
	stepManual:     {(*Game).manualReset, 0, stepWaitKey, stepWaitKey},
	stepRandom:     {(*Game).randomReset, 0, stepWaitKey, stepWaitKey},
	stepWinner:     {(*Game).announceWin, 0, stepRandom, stepRandom},
	stepLoser:      {(*Game).announceLose, 0, stepRandom, stepRandom},
}

// boundRow binds a script row to a game so it satisfies seq.Step.
type boundRow struct {
	g *Game
	r scriptRow
}

func (b boundRow) Run(prev uint8) (uint8, error) {
	if b.r.handler == nil {
		return prev, nil
	}
	return b.r.handler(b.g), nil
}

func (b boundRow) Next(s uint8) (int, error) {
	if s >= b.r.cmp {
		return b.r.ge, nil
	}
	return b.r.lt, nil
}

func (g *Game) engine() *seq.Engine[uint8] {
	steps := make([]seq.Step[uint8], len(script))
	for i, r := range script {
		steps[i] = boundRow{g, r}
	}
	return seq.New(steps)
}

// RunSteps interprets up to n script steps. Tests and the host simulator
// use it to run bounded slices of the game.
func (g *Game) RunSteps(n int) {
	_, _ = g.engine().RunLimit(n)
}

// RunLoop drives the game forever. The script has no terminal row, so
// interpretation never stops on its own; the outer loop only matters if
// a row ever fails, and restarting the script then deals a fresh game.
func (g *Game) RunLoop() {
	eng := g.engine()
	for {
		_, _ = eng.Run()
	}
}
