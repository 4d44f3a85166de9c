package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"puzzlebox/core"
	"puzzlebox/host/board"
	"puzzlebox/host/serial"
	"puzzlebox/sdsim"
	"puzzlebox/sdspi"
)

var (
	device     = flag.String("device", "", "Serial device path (overrides config)")
	configPath = flag.String("config", "", "YAML config file")
	imagePath  = flag.String("image", "", "Inspect a card image file instead of connecting")
)

func main() {
	flag.Parse()

	if *imagePath != "" {
		if err := inspectImage(*imagePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *device != "" {
		cfg.Device = *device
	}

	b := board.New()
	fmt.Printf("Connecting to board on %s...\n", cfg.Device)
	err := b.ConnectWithConfig(&serial.Config{
		Device:      cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer b.Close()

	fmt.Println("Connected. Type 'help' for commands, 'quit' to exit.")
	repl(b, cfg)
}

func repl(b *board.Board, cfg *Config) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		switch parts[0] {
		case "quit", "exit", "q":
			return

		case "help", "?":
			printHelp()

		case "ping":
			if err := b.Ping(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Println("pong")

		case "state":
			if err := printState(b); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "key":
			if err := injectKey(b, cfg, parts[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "reset":
			if err := b.InjectKey(core.KeyRowBit(0) | 0x09); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "rand":
			if err := b.InjectKey(core.KeyRowBit(1) | 0x09); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "save":
			if err := printSave(b); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "logs":
			drainLogs(b)

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", parts[0])
		}
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  ping           - Check the link round trip")
	fmt.Println("  state          - Show lamps, move count and best score")
	fmt.Println("  key R C        - Press the switch at row R, column C")
	fmt.Println("  key NAME       - Press a switch by config alias")
	fmt.Println("  reset          - Press the manual-reset chord")
	fmt.Println("  rand           - Press the random-reset chord")
	fmt.Println("  save           - Dump the save slot from the card")
	fmt.Println("  logs           - Print buffered firmware log lines")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println()
}

func printState(b *board.Board) error {
	st, err := b.State()
	if err != nil {
		return err
	}
	fmt.Println("Lamps:")
	for r := 0; r < 3; r++ {
		row := make([]byte, 0, 8)
		for c := 0; c < 4; c++ {
			if st.Lamps&(1<<(r*4+c)) != 0 {
				row = append(row, '#', ' ')
			} else {
				row = append(row, '.', ' ')
			}
		}
		fmt.Printf("  %s\n", row)
	}
	fmt.Printf("Moves: %d  Best: %d\n", st.Moves, st.Best)
	return nil
}

func injectKey(b *board.Board, cfg *Config, args []string) error {
	switch len(args) {
	case 1:
		code, ok := cfg.Aliases[args[0]]
		if !ok {
			return fmt.Errorf("unknown key alias %q", args[0])
		}
		return b.InjectKey(code)

	case 2:
		row, err := strconv.Atoi(args[0])
		if err != nil || row < 0 || row >= 3 {
			return fmt.Errorf("row must be 0-2")
		}
		col, err := strconv.Atoi(args[1])
		if err != nil || col < 0 || col >= 4 {
			return fmt.Errorf("column must be 0-3")
		}
		return b.InjectKey(core.KeyCode(uint8(row), uint8(col)))
	}
	return fmt.Errorf("usage: key R C | key NAME")
}

func printSave(b *board.Board) error {
	slot, err := b.SaveSlot()
	if err != nil {
		return err
	}
	printSaveSlot(slot)
	return nil
}

// printSaveSlot decodes the on-card save layout: 4-byte magic, then
// scramble, move count and best score as big-endian 16-bit words.
func printSaveSlot(slot []byte) {
	if len(slot) < 10 || string(slot[:4]) != "PZL1" {
		fmt.Println("Save slot: empty or foreign data")
		if n := min(len(slot), 16); n > 0 {
			fmt.Printf("  first bytes: % x\n", slot[:n])
		}
		return
	}
	fmt.Printf("Save slot: scramble=%#04x moves=%d best=%d\n",
		binary.BigEndian.Uint16(slot[4:]),
		binary.BigEndian.Uint16(slot[6:]),
		binary.BigEndian.Uint16(slot[8:]))
}

func drainLogs(b *board.Board) {
	for {
		select {
		case line := <-b.Logs:
			fmt.Printf("  %s\n", line)
		default:
			return
		}
	}
}

// inspectImage reads the save slot out of a raw card image file through
// the same block driver the firmware uses, against the simulated card.
func inspectImage(path string) error {
	img, err := os.Open(path)
	if err != nil {
		return err
	}
	defer img.Close()

	card := sdsim.NewCardFile(img)
	drv := sdspi.New(card, core.NewWallClock())
	if err := drv.InitCard(); err != nil {
		return fmt.Errorf("init card image: %w", err)
	}

	var block [sdspi.BlockSize]byte
	if err := drv.ReadBlock(0, block[:], len(block)); err != nil {
		return fmt.Errorf("read save block: %w", err)
	}
	printSaveSlot(block[:])
	return nil
}
