// Package hw is the seam between the diagnostic logic and the board.
// Platform files provide DefaultBoard; the host build provides fakes.
package hw

import (
	"uartdiag/types"

	"tinygo.org/x/drivers"
)

// ---- GPIO ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type Pin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// IRQPin extends Pin with interrupts. The handler runs in interrupt
// context on MCU builds and must not block or allocate.
type IRQPin interface {
	Pin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// ---- Serial ----

// SerialPort is the console UART. Read never blocks; Readable is signalled
// when new RX bytes may be available.
type SerialPort interface {
	drivers.UART
	Readable() <-chan struct{}
}

// SerialConfigurer is implemented by ports whose line format can be set.
type SerialConfigurer interface {
	ConfigureSerial(f types.SerialFormat) error
}

// SerialCloser is implemented by ports that hold resources, such as a
// poller goroutine, after ConfigureSerial.
type SerialCloser interface {
	Close() error
}

// ---- Board profile ----

type Board struct {
	Name string

	// LEDs indexed by types.LEDGreen, types.LEDBlue, types.LEDRed.
	LEDs [3]Pin

	Button      IRQPin
	ButtonName  string // pin name used in the press message, e.g. "PC13"
	ButtonPull  Pull
	ActiveHigh  bool
	ButtonEdges Edge

	Serial SerialPort
	Baud   uint32
}

// ConfigureSerial applies the line format when the port supports it.
func (b *Board) ConfigureSerial(f types.SerialFormat) error {
	if c, ok := b.Serial.(SerialConfigurer); ok {
		return c.ConfigureSerial(f)
	}
	return nil
}

// CloseSerial releases what ConfigureSerial started, when the port needs it.
func (b *Board) CloseSerial() error {
	if c, ok := b.Serial.(SerialCloser); ok {
		return c.Close()
	}
	return nil
}
