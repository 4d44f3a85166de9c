package sdspi

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"puzzlebox/sdsim"
)

// tapBus records traffic while forwarding to a simulated card.
type tapBus struct {
	card *sdsim.Card
	sent []byte
}

func (b *tapBus) Exchange(out byte) byte {
	b.sent = append(b.sent, out)
	return b.card.Exchange(out)
}

func (b *tapBus) Select(assert bool) {
	b.card.Select(assert)
}

func countByte(s []byte, v byte) int {
	n := 0
	for _, b := range s {
		if b == v {
			n++
		}
	}
	return n
}

func TestInitTableShape(t *testing.T) {
	if len(initTable) != lenInitTable {
		t.Fatalf("initTable has %d rows, terminal sentinels assume %d", len(initTable), lenInitTable)
	}
	for i, st := range initTable {
		for _, br := range []Branch{st.OnMatch, st.OnMismatch} {
			if br.Err == nil && br.Next < 0 {
				t.Errorf("row %d branches to negative step", i)
			}
		}
	}
}

func TestInitStep0MatchesAnyResponse(t *testing.T) {
	// CMD0's mask is all zero, so the masked comparison matches whatever
	// the card answered, and both branches advance to step 1.
	st := initTable[0]
	for _, resp := range []Response{{}, {0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, {0x01}, {0x7A, 1, 2, 3, 4}} {
		if !resp.masked(st.Mask, st.Expect) {
			t.Errorf("step 0 mismatched response %v", resp)
		}
	}
	if st.OnMatch.Next != 1 || st.OnMismatch.Next != 1 {
		t.Errorf("step 0 branches = %+v / %+v, want both -> 1", st.OnMatch, st.OnMismatch)
	}
}

func TestInitCardNegotiatesSDHC(t *testing.T) {
	card := sdsim.NewCard()
	card.IdlePolls = 3
	bus := &tapBus{card: card}
	dev := New(bus, &fakeClock{step: 1})

	if err := dev.InitCard(); err != nil {
		t.Fatalf("InitCard: %v", err)
	}

	// The idle-poll loop resends CMD55+ACMD41 until the card leaves idle:
	// three idle answers plus the accepting one.
	if got := countByte(bus.sent, 0x40|cmdAppSendOpCond); got != 4 {
		t.Errorf("ACMD41 sent %d times, want 4", got)
	}
	if got := countByte(bus.sent, 0x40|cmdAppPrefix); got != 4 {
		t.Errorf("CMD55 sent %d times, want 4", got)
	}
}

func TestInitCardToleratesSlowResponses(t *testing.T) {
	card := sdsim.NewCard()
	card.RespDelay = respAttempts - 1 // response lands on the last attempt
	bus := &tapBus{card: card}
	dev := New(bus, &fakeClock{step: 1})

	if err := dev.InitCard(); err != nil {
		t.Fatalf("InitCard with slow card: %v", err)
	}
}

func TestInitCardFailures(t *testing.T) {
	cases := []struct {
		name string
		card func() *sdsim.Card
		want error
	}{
		{
			name: "version-1 card",
			card: func() *sdsim.Card { c := sdsim.NewCard(); c.Version1 = true; return c },
			want: ErrNonCompatibleCard,
		},
		{
			name: "standard-capacity card",
			card: func() *sdsim.Card { c := sdsim.NewCard(); c.StandardCapacity = true; return c },
			want: ErrNonCompatibleCard,
		},
		{
			name: "dead card",
			card: func() *sdsim.Card { c := sdsim.NewCard(); c.Dead = true; return c },
			want: ErrBusTimeout,
		},
		{
			name: "response past the attempt window",
			card: func() *sdsim.Card { c := sdsim.NewCard(); c.RespDelay = respAttempts; return c },
			want: ErrBusTimeout,
		},
		{
			name: "bad check pattern",
			card: func() *sdsim.Card { c := sdsim.NewCard(); c.BadCheckPattern = true; return c },
			want: errCheckPattern,
		},
	}

	for _, tc := range cases {
		dev := New(&tapBus{card: tc.card()}, &fakeClock{step: 1})
		err := dev.InitCard()
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: InitCard error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestBlockRoundTripThroughSimulatedCard(t *testing.T) {
	card := sdsim.NewCard()
	card.BusyBytes = 5
	dev := New(&tapBus{card: card}, &fakeClock{step: 1})

	if err := dev.InitCard(); err != nil {
		t.Fatalf("InitCard: %v", err)
	}

	data := make([]byte, BlockSize)
	for i := range data {
		data[i] = byte(i * 7)
	}
	if err := dev.WriteBlock(3, data, BlockSize); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	got := make([]byte, BlockSize)
	if err := dev.ReadBlock(3, got, BlockSize); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("read data differs from written data")
	}
}

func TestPartialWritePadsWithFiller(t *testing.T) {
	card := sdsim.NewCard()
	dev := New(&tapBus{card: card}, &fakeClock{step: 1})

	payload := []byte("puzzle save")
	if err := dev.WriteBlock(9, payload, len(payload)); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	stored := card.Block(9)
	if !bytes.Equal(stored[:len(payload)], payload) {
		t.Error("payload bytes not stored")
	}
	for i := len(payload); i < BlockSize; i++ {
		if stored[i] != Filler {
			t.Fatalf("pad byte %d = %#02x, want filler", i, stored[i])
		}
	}
}

func TestWriteRejectedBySimulatedCard(t *testing.T) {
	card := sdsim.NewCard()
	card.RejectWrites = true
	dev := New(&tapBus{card: card}, &fakeClock{step: 1})

	err := dev.WriteBlock(1, make([]byte, 8), 8)
	if !errors.Is(err, ErrDataRejected) {
		t.Errorf("WriteBlock error = %v, want ErrDataRejected", err)
	}
}

func TestWriteToBrokenImageRejected(t *testing.T) {
	img, err := os.CreateTemp(t.TempDir(), "card-*.img")
	if err != nil {
		t.Fatal(err)
	}
	img.Close() // every image write now fails

	card := sdsim.NewCardFile(img)
	dev := New(&tapBus{card: card}, &fakeClock{step: 1})

	err = dev.WriteBlock(1, make([]byte, 8), 8)
	if !errors.Is(err, ErrDataRejected) {
		t.Errorf("WriteBlock error = %v, want ErrDataRejected", err)
	}
}

func TestReadErrorTokenFromSimulatedCard(t *testing.T) {
	card := sdsim.NewCard()
	card.ReadErrorToken = true
	dev := New(&tapBus{card: card}, &fakeClock{step: 1})

	err := dev.ReadBlock(1, make([]byte, 8), 8)
	if !errors.Is(err, ErrDataRead) {
		t.Errorf("ReadBlock error = %v, want ErrDataRead", err)
	}
}
