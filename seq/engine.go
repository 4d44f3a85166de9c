// Package seq implements a generic table-driven sequencer.
//
// A sequencer table is a slice of steps. Each step performs an action that
// produces a result and then selects the next step from that result. The
// engine carries the most recent result between steps, which lets a table
// contain re-check rows: rows that take a fresh branch decision on the
// previous result without performing any new action.
//
// Next-step indices at or beyond the table length are terminal sentinels:
// index len(table)+k terminates the run with code k. The same engine
// interprets both the storage card's negotiation handshake and the game's
// control-flow script; only the row schema differs.
package seq

import "fmt"

// Step is one row of a sequencer table. R is the row result type.
type Step[R any] interface {
	// Run performs the row's action and returns its result. prev is the
	// most recent result in the run; re-check rows return it unchanged.
	Run(prev R) (R, error)

	// Next selects the follow-on step for result r. An error terminates
	// the run as a failure.
	Next(r R) (int, error)
}

// Engine interprets a sequencer table.
type Engine[R any] struct {
	steps []Step[R]
}

// New builds an engine over the given table.
func New[R any](steps []Step[R]) *Engine[R] {
	return &Engine[R]{steps: steps}
}

// Len returns the table length, the first terminal sentinel index.
func (e *Engine[R]) Len() int {
	return len(e.steps)
}

// Run interprets the table from step 0 until a step branches to a terminal
// sentinel or fails. It returns the terminal code (next - len(table)).
func (e *Engine[R]) Run() (int, error) {
	return e.run(-1)
}

// RunLimit is Run with an upper bound on executed steps, for tables that
// never reach a terminal (the game script) and for tests. It returns
// ErrStepLimit when the bound is hit.
func (e *Engine[R]) RunLimit(maxSteps int) (int, error) {
	return e.run(maxSteps)
}

// ErrStepLimit reports that RunLimit exhausted its step budget.
var ErrStepLimit = fmt.Errorf("seq: step limit reached")

func (e *Engine[R]) run(maxSteps int) (int, error) {
	var last R
	idx := 0
	for n := 0; ; n++ {
		if maxSteps >= 0 && n >= maxSteps {
			return 0, ErrStepLimit
		}
		r, err := e.steps[idx].Run(last)
		if err != nil {
			return 0, err
		}
		last = r

		next, err := e.steps[idx].Next(last)
		if err != nil {
			return 0, err
		}
		if next < 0 {
			return 0, fmt.Errorf("seq: step %d selected invalid next step %d", idx, next)
		}
		if next >= len(e.steps) {
			return next - len(e.steps), nil
		}
		idx = next
	}
}
