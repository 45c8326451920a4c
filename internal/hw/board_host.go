//go:build !stm32f7 && !rp2040 && !rp2350

package hw

import (
	"bytes"
	"strings"
	"sync"

	"uartdiag/types"
)

// DefaultBoard returns a simulated board so the firmware runs on a host.
func DefaultBoard() (*Board, error) {
	return NewFakeBoard().Board(), nil
}

// FakeBoard keeps typed handles on the fakes behind a Board.
type FakeBoard struct {
	Green, Blue, Red *FakePin
	Button           *FakePin
	UART             *FakeUART
}

// NewFakeBoard mirrors the Nucleo pin numbering (port*16+pin).
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{
		Green:  &FakePin{number: 16 + 0},
		Blue:   &FakePin{number: 16 + 7},
		Red:    &FakePin{number: 16 + 14},
		Button: &FakePin{number: 32 + 13},
		UART:   NewFakeUART(),
	}
}

func (f *FakeBoard) Board() *Board {
	return &Board{
		Name:        "host",
		LEDs:        [3]Pin{f.Green, f.Blue, f.Red},
		Button:      f.Button,
		ButtonName:  "PC13",
		ButtonPull:  PullDown,
		ActiveHigh:  true,
		ButtonEdges: EdgeBoth,
		Serial:      f.UART,
		Baud:        9600,
	}
}

// LEDState reads the fake outputs.
func (f *FakeBoard) LEDState() types.LEDState {
	return types.LEDState{Green: f.Green.Get(), Blue: f.Blue.Get(), Red: f.Red.Get()}
}

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements IRQPin. Set fires the registered handler synchronously
// on a matching edge, the way a pin interrupt would.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	pull    Pull
	irqEdge Edge
	irqFunc func()
	history []bool // output writes, for sequence assertions
	record  bool
}

func (p *FakePin) ConfigureInput(pull Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.pull = pull
	p.level = pull == PullUp
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	if p.record && p.modeOut {
		p.history = append(p.history, level)
	}
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	irq := p.irqFunc
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

func (p *FakePin) Pull() Pull {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pull
}

func (p *FakePin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

func (p *FakePin) HasIRQ() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqFunc != nil
}

// Record starts capturing output writes; History returns them.
func (p *FakePin) Record() {
	p.mu.Lock()
	p.record = true
	p.history = nil
	p.mu.Unlock()
}

func (p *FakePin) History() []bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]bool(nil), p.history...)
}

// Press drives an active-high button through press and release.
func (p *FakePin) Press() {
	p.Set(true)
	p.Set(false)
}

func edgeFrom(old, new bool) Edge {
	switch {
	case !old && new:
		return EdgeRising
	case old && !new:
		return EdgeFalling
	default:
		return EdgeNone
	}
}

func irqWanted(cfg, seen Edge) bool {
	if seen == EdgeNone {
		return false
	}
	return cfg == EdgeBoth || cfg == seen
}

// ----------------------------- UART (host) -----------------------------------

// FakeUART is an in-memory SerialPort. Inject feeds RX; Output returns TX.
type FakeUART struct {
	mu     sync.Mutex
	rx     []byte
	tx     bytes.Buffer
	rd     chan struct{}
	format types.SerialFormat
	txSig  chan struct{}
	open   bool
}

func NewFakeUART() *FakeUART {
	return &FakeUART{rd: make(chan struct{}, 1), txSig: make(chan struct{}, 1)}
}

func (f *FakeUART) ConfigureSerial(fm types.SerialFormat) error {
	f.mu.Lock()
	f.format = fm
	f.open = true
	f.mu.Unlock()
	return nil
}

func (f *FakeUART) Close() error {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	return nil
}

// Open reports whether the port is configured and not yet closed.
func (f *FakeUART) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *FakeUART) Format() types.SerialFormat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.format
}

func (f *FakeUART) Inject(b []byte) {
	f.mu.Lock()
	f.rx = append(f.rx, b...)
	f.mu.Unlock()
	select {
	case f.rd <- struct{}{}:
	default:
	}
}

func (f *FakeUART) Buffered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rx)
}

func (f *FakeUART) Read(p []byte) (int, error) {
	f.mu.Lock()
	n := copy(p, f.rx)
	f.rx = f.rx[n:]
	f.mu.Unlock()
	return n, nil
}

func (f *FakeUART) Write(p []byte) (int, error) {
	f.mu.Lock()
	n, _ := f.tx.Write(p)
	f.mu.Unlock()
	select {
	case f.txSig <- struct{}{}:
	default:
	}
	return n, nil
}

func (f *FakeUART) Readable() <-chan struct{} { return f.rd }

// Written is signalled after each TX write.
func (f *FakeUART) Written() <-chan struct{} { return f.txSig }

func (f *FakeUART) Output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tx.String()
}

// Lines splits TX output on CRLF, dropping the trailing partial line.
func (f *FakeUART) Lines() []string {
	out := f.Output()
	parts := strings.Split(out, "\r\n")
	return parts[:len(parts)-1]
}

func (f *FakeUART) ResetOutput() {
	f.mu.Lock()
	f.tx.Reset()
	f.mu.Unlock()
}
