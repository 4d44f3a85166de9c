//go:build rp2040

package main

import "machine"

// tonePeriodStepNS converts a tone divider into a PWM period. Divider
// units count a 250kHz base, so one unit is 4us of period.
const tonePeriodStepNS = 4000

// pwmSlice abstracts over TinyGo's unexported *pwmGroup type.
type pwmSlice interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// pwmTone generates the board tone on a hardware PWM channel at 50%
// duty. A zero divider parks the output low.
type pwmTone struct {
	pwm     pwmSlice
	pin     machine.Pin
	channel uint8
}

func newPWMTone() (*pwmTone, error) {
	// GPIO7 sits on PWM slice 3 channel B.
	t := &pwmTone{pwm: machine.PWM3, pin: tonePin}
	if err := t.pwm.Configure(machine.PWMConfig{}); err != nil {
		return nil, err
	}
	channel, err := t.pwm.Channel(t.pin)
	if err != nil {
		return nil, err
	}
	t.channel = channel
	t.pwm.Set(t.channel, 0)
	return t, nil
}

func (t *pwmTone) SetToneDivider(n uint16) {
	if n == 0 {
		t.pwm.Set(t.channel, 0)
		return
	}
	err := t.pwm.Configure(machine.PWMConfig{
		Period: uint64(n) * tonePeriodStepNS,
	})
	if err != nil {
		return
	}
	t.pwm.Set(t.channel, t.pwm.Top()/2)
}
