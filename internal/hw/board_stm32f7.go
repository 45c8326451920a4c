//go:build stm32f7

package hw

import (
	"context"
	"machine"
	"time"

	"uartdiag/errcode"
	"uartdiag/types"
)

// DefaultBoard describes a Nucleo-144 STM32F7 board (F722ZE/F767ZI pinout):
// LD1 green PB0, LD2 blue PB7, LD3 red PB14, user button PC13 with pull-down,
// console on the ST-LINK virtual COM port (USART3, PD8/PD9).
func DefaultBoard() (*Board, error) {
	btn := &stmPin{p: machine.BUTTON, n: int(machine.BUTTON)}
	b := &Board{
		Name: "nucleo-f767zi",
		LEDs: [3]Pin{
			&stmPin{p: machine.LED_GREEN, n: int(machine.LED_GREEN)},
			&stmPin{p: machine.LED_BLUE, n: int(machine.LED_BLUE)},
			&stmPin{p: machine.LED_RED, n: int(machine.LED_RED)},
		},
		Button:      btn,
		ButtonName:  "PC13",
		ButtonPull:  PullDown,
		ActiveHigh:  true,
		ButtonEdges: EdgeBoth,
		Serial:      newSTMSerial(machine.DefaultUART),
		Baud:        9600,
	}
	return b, nil
}

// ---- GPIO ----

type stmPin struct {
	p machine.Pin
	n int
}

func (r *stmPin) Number() int { return r.n }

func (r *stmPin) ConfigureInput(pull Pull) error {
	mode := machine.PinInput
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *stmPin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *stmPin) Set(level bool) { r.p.Set(level) }
func (r *stmPin) Get() bool      { return r.p.Get() }

func (r *stmPin) SetIRQ(edge Edge, handler func()) error {
	var change machine.PinChange
	switch edge {
	case EdgeRising:
		change = machine.PinRising
	case EdgeFalling:
		change = machine.PinFalling
	case EdgeBoth:
		change = machine.PinRising | machine.PinFalling
	default:
		return r.ClearIRQ()
	}
	if err := r.p.SetInterrupt(change, func(machine.Pin) { handler() }); err != nil {
		return errcode.Wrap(errcode.IRQFailed, "set_irq", err)
	}
	return nil
}

func (r *stmPin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

// ---- Serial ----

// stmSerial adapts machine.UART. The stm32 port buffers RX bytes from its
// interrupt handler but has no notifier, so a poller started by
// ConfigureSerial bridges Buffered to Readable until Close.
type stmSerial struct {
	u      *machine.UART
	notify chan struct{}
	cancel context.CancelFunc
}

const stmRxPoll = 10 * time.Millisecond

func newSTMSerial(u *machine.UART) *stmSerial {
	return &stmSerial{u: u, notify: make(chan struct{}, 1)}
}

func (s *stmSerial) ConfigureSerial(f types.SerialFormat) error {
	if err := s.u.Configure(machine.UARTConfig{
		BaudRate: f.Baud,
		TX:       machine.UART_TX_PIN,
		RX:       machine.UART_RX_PIN,
	}); err != nil {
		return errcode.Wrap(errcode.SerialFailed, "configure", err)
	}
	if s.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.poll(ctx)
	}
	return nil
}

// Close stops the RX poller. A later ConfigureSerial starts a new one.
func (s *stmSerial) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

func (s *stmSerial) poll(ctx context.Context) {
	t := time.NewTicker(stmRxPoll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if s.u.Buffered() == 0 {
				continue
			}
			select {
			case s.notify <- struct{}{}:
			default:
			}
		}
	}
}

func (s *stmSerial) Read(p []byte) (int, error)  { return s.u.Read(p) }
func (s *stmSerial) Write(p []byte) (int, error) { return s.u.Write(p) }
func (s *stmSerial) Buffered() int               { return s.u.Buffered() }
func (s *stmSerial) Readable() <-chan struct{}   { return s.notify }
