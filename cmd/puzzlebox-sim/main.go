// Command puzzlebox-sim runs the game logic on the host against
// simulated hardware: a printed display, an injected key latch and a
// simulated storage card, optionally backed by an image file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"puzzlebox/core"
	"puzzlebox/game"
	"puzzlebox/sdsim"
	"puzzlebox/sdspi"
)

var (
	imagePath = flag.String("image", "", "Card image file for persistence (created if missing)")
	autoMoves = flag.Int("auto", 0, "Play this many random moves and exit")
	seed      = flag.Int64("seed", 0, "Random seed for -auto (0 uses the current time)")
)

// simDisplay satisfies the display interface; the sim renders from the
// display buffer snapshot instead, so the per-slot writes are dropped.
type simDisplay struct{}

func (simDisplay) WriteDigit(pattern byte) {}
func (simDisplay) WriteDrive(line byte)    {}

// simSwitches reports no switches pressed; keys enter through the
// injection latch instead of the debouncer.
type simSwitches struct{}

func (simSwitches) ReadRow(sel uint8) uint8 { return 0 }

type simTone struct{}

func (simTone) SetToneDivider(n uint16) {
	if n != 0 {
		fmt.Printf("[tone %#04x]\n", n)
	}
}

func main() {
	flag.Parse()

	clock := core.NewWallClock()

	card, closeImage, err := openCard(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeImage()

	dev := core.NewDevice(core.Hardware{
		Display:  simDisplay{},
		Switches: simSwitches{},
		Tone:     simTone{},
	})

	save := game.Open(sdspi.New(card, clock))

	snd := core.NewSound(dev, clock)
	g := game.New(dev, snd, save)

	go func() {
		for {
			dev.Tick()
			time.Sleep(time.Millisecond)
		}
	}()
	go g.RunLoop()

	// Let the script reach its first key wait.
	time.Sleep(50 * time.Millisecond)

	if *autoMoves > 0 {
		autoplay(dev, g, *autoMoves)
		return
	}
	repl(dev, g)
}

func openCard(path string) (*sdsim.Card, func(), error) {
	if path == "" {
		return sdsim.NewCard(), func() {}, nil
	}
	img, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return sdsim.NewCardFile(img), func() { img.Close() }, nil
}

func autoplay(dev *core.Device, g *game.Game, moves int) {
	rng := rand.New(rand.NewSource(seedValue()))
	for i := 0; i < moves; i++ {
		row := uint8(rng.Intn(game.LampRows))
		col := uint8(rng.Intn(game.LampCols))
		dev.InjectKey(core.KeyCode(row, col))
		time.Sleep(20 * time.Millisecond)
		if g.Lamps() == 0 {
			break
		}
	}
	time.Sleep(50 * time.Millisecond)
	printBoard(dev, g)
}

func seedValue() int64 {
	if *seed != 0 {
		return *seed
	}
	return time.Now().UnixNano()
}

func repl(dev *core.Device, g *game.Game) {
	printBoard(dev, g)
	fmt.Println("Commands: R C (press switch), reset, rand, show, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		switch parts[0] {
		case "quit", "exit", "q":
			return

		case "show":
			printBoard(dev, g)
			continue

		case "reset":
			dev.InjectKey(core.KeyRowBit(0) | 0x09)

		case "rand":
			dev.InjectKey(core.KeyRowBit(1) | 0x09)

		default:
			if len(parts) != 2 {
				fmt.Println("usage: R C | reset | rand | show | quit")
				continue
			}
			row, err1 := strconv.Atoi(parts[0])
			col, err2 := strconv.Atoi(parts[1])
			if err1 != nil || err2 != nil ||
				row < 0 || row >= game.LampRows || col < 0 || col >= game.LampCols {
				fmt.Println("row 0-2, column 0-3")
				continue
			}
			dev.InjectKey(core.KeyCode(uint8(row), uint8(col)))
		}

		// Give the script a moment to consume the key.
		time.Sleep(20 * time.Millisecond)
		printBoard(dev, g)
	}
}

func printBoard(dev *core.Device, g *game.Game) {
	snap := dev.Display()
	lamps := snap.Lamps()
	for r := 0; r < game.LampRows; r++ {
		row := make([]byte, 0, 2*game.LampCols)
		for c := 0; c < game.LampCols; c++ {
			if lamps&(1<<(r*game.LampCols+c)) != 0 {
				row = append(row, '#', ' ')
			} else {
				row = append(row, '.', ' ')
			}
		}
		fmt.Printf("  %s\n", row)
	}
	fmt.Printf("Moves: %d  Best: %d", g.Moves(), g.Best())
	if snap.Win() {
		fmt.Print("  WIN")
	}
	if snap.Lose() {
		fmt.Print("  LOSE")
	}
	fmt.Println()
}
