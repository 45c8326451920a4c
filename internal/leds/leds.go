// Package leds drives the three board LEDs as one exclusive bank.
package leds

import (
	"context"
	"sync"
	"time"

	"uartdiag/errcode"
	"uartdiag/internal/hw"
	"uartdiag/types"
)

type Bank struct {
	mu     sync.Mutex
	pins   [3]hw.Pin
	state  types.LEDState
	notify func(types.LEDState)
}

// New configures the pins as outputs, initially off. notify (optional) is
// called after every change with the new state.
func New(pins [3]hw.Pin, notify func(types.LEDState)) (*Bank, error) {
	for _, p := range pins {
		if p == nil {
			return nil, errcode.UnknownPin
		}
		if err := p.ConfigureOutput(false); err != nil {
			return nil, err
		}
	}
	return &Bank{pins: pins, notify: notify}, nil
}

// AllOff turns every LED off.
func (b *Bank) AllOff() {
	b.apply(types.LEDState{})
}

// On turns all LEDs off and then lights id. LEDAll lights all three.
// An invalid id leaves everything off and reports InvalidLED.
func (b *Bank) On(id types.LED) error {
	b.AllOff()
	switch id {
	case types.LEDGreen:
		b.apply(types.LEDState{Green: true})
	case types.LEDBlue:
		b.apply(types.LEDState{Blue: true})
	case types.LEDRed:
		b.apply(types.LEDState{Red: true})
	case types.LEDAll:
		b.apply(types.LEDState{Green: true, Blue: true, Red: true})
	default:
		return errcode.InvalidLED
	}
	return nil
}

// Blink flashes id the given number of times, half on and half off.
// Cancellation stops early with the LEDs off.
func (b *Bank) Blink(ctx context.Context, id types.LED, times int, half time.Duration) error {
	if !id.Valid() {
		return errcode.InvalidLED
	}
	defer b.AllOff()
	for i := 0; i < times; i++ {
		_ = b.On(id)
		if err := Sleep(ctx, half); err != nil {
			return err
		}
		b.AllOff()
		if err := Sleep(ctx, half); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bank) State() types.LEDState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bank) apply(s types.LEDState) {
	b.mu.Lock()
	b.pins[types.LEDGreen].Set(s.Green)
	b.pins[types.LEDBlue].Set(s.Blue)
	b.pins[types.LEDRed].Set(s.Red)
	changed := s != b.state
	b.state = s
	notify := b.notify
	b.mu.Unlock()
	if changed && notify != nil {
		notify(s)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
