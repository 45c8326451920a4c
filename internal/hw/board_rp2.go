//go:build rp2040 || rp2350

package hw

import (
	"machine"

	"uartdiag/errcode"
	"uartdiag/types"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// DefaultBoard describes the Pico bench rig: three LEDs on GP13..GP15,
// a push button to ground on GP16, console on UART0 (GP0/GP1).
func DefaultBoard() (*Board, error) {
	pin := func(n int) *rp2Pin { return &rp2Pin{p: machine.Pin(n), n: n} }
	return &Board{
		Name:        "pico",
		LEDs:        [3]Pin{pin(13), pin(14), pin(15)},
		Button:      pin(16),
		ButtonName:  "GP16",
		ButtonPull:  PullUp,
		ActiveHigh:  false,
		ButtonEdges: EdgeBoth,
		Serial:      &rp2Serial{u: uartx.UART0},
		Baud:        9600,
	}, nil
}

// ---- GPIO ----

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) Number() int { return r.n }

func (r *rp2Pin) ConfigureInput(pull Pull) error {
	var mode machine.PinMode
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }

func (r *rp2Pin) SetIRQ(edge Edge, handler func()) error {
	var change machine.PinChange
	switch edge {
	case EdgeRising:
		change = machine.PinRising
	case EdgeFalling:
		change = machine.PinFalling
	case EdgeBoth:
		change = machine.PinToggle
	default:
		return r.ClearIRQ()
	}
	if err := r.p.SetInterrupt(change, func(machine.Pin) { handler() }); err != nil {
		return errcode.Wrap(errcode.IRQFailed, "set_irq", err)
	}
	return nil
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

// ---- Serial ----

// rp2Serial adapts uartx, which already signals RX readiness from its ISR.
type rp2Serial struct{ u *uartx.UART }

func (s *rp2Serial) ConfigureSerial(f types.SerialFormat) error {
	if err := s.u.Configure(uartx.UARTConfig{
		BaudRate: f.Baud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	}); err != nil {
		return errcode.Wrap(errcode.SerialFailed, "configure", err)
	}
	par := uartx.ParityNone
	switch f.Parity {
	case types.ParityEven:
		par = uartx.ParityEven
	case types.ParityOdd:
		par = uartx.ParityOdd
	}
	return s.u.SetFormat(f.DataBits, f.StopBits, par)
}

func (s *rp2Serial) Read(p []byte) (int, error)  { return s.u.Read(p) }
func (s *rp2Serial) Write(p []byte) (int, error) { return s.u.Write(p) }
func (s *rp2Serial) Buffered() int               { return s.u.Buffered() }
func (s *rp2Serial) Readable() <-chan struct{}   { return s.u.Readable() }
