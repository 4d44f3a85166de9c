package core

// Tone dividers for the game's audio cues. The divider-to-frequency
// arithmetic lives in the target's tone driver; these values were picked by
// ear on the reference board.
const (
	DividerOff uint16 = 0

	DividerWarn uint16 = 0x0400 // low buzz
	DividerLow  uint16 = 0x0200
	DividerMid  uint16 = 0x0100
	DividerHigh uint16 = 0x0080
)

// Sound plays the fixed audio cues through the device tone output. Playback
// blocks the foreground; durations are measured against the injected clock
// so tests can run without real delay.
type Sound struct {
	dev   *Device
	clock Clock
}

// NewSound binds the sound player to a device and a time source.
func NewSound(dev *Device, clock Clock) *Sound {
	return &Sound{dev: dev, clock: clock}
}

// Warn plays the illegal-move buzz.
func (s *Sound) Warn() {
	s.play(DividerWarn, 120)
}

// Win plays the rising win jingle.
func (s *Sound) Win() {
	s.play(DividerLow, 90)
	s.play(DividerMid, 90)
	s.play(DividerHigh, 180)
}

// Lose plays the falling lose cue.
func (s *Sound) Lose() {
	s.play(DividerMid, 120)
	s.play(DividerLow, 240)
}

func (s *Sound) play(divider uint16, ms uint32) {
	s.dev.Tone(divider)
	start := s.clock.NowMS()
	for s.clock.NowMS()-start < ms { // wrap-safe elapsed check
		s.dev.idle()
	}
	s.dev.Tone(DividerOff)
}
