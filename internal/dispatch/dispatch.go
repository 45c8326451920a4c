// Package dispatch maps single-character console commands to LED actions
// and reply lines.
package dispatch

import (
	"context"
	"time"

	"uartdiag/errcode"
	"uartdiag/internal/leds"
	"uartdiag/types"
	"uartdiag/x/fmtx"
)

// LineWriter is satisfied by serialio.Writer.
type LineWriter interface {
	WriteLine(s string) error
}

// NoMode marks entries that are not mode commands.
const NoMode = -1

type step uint8

const (
	stepNone step = iota
	stepAllOff
	stepOn
	stepBlinkSequence
)

// Entry is one row of the command table.
type Entry struct {
	Char  byte
	Reply []string
	Mode  int       // 0..4 for mode commands, NoMode otherwise
	LED   types.LED // target of stepOn
	// ReplyFirst writes the reply before running the action.
	ReplyFirst bool

	step step
}

// Label is the telemetry LED label for a mode command.
func (e Entry) Label() string {
	if e.step == stepOn {
		return e.LED.Label()
	}
	return "NONE"
}

var helpLines = []string{
	"\r\n--- Comandos disponibles ---",
	"0: Apagar todos los LEDs",
	"1: Encender LED Verde",
	"2: Encender LED Azul",
	"3: Encender LED Rojo",
	"4: Encender todos los LEDs",
	"b: Secuencia de parpadeo",
	"h o ?: Mostrar esta ayuda",
}

var table = []Entry{
	{Char: '0', Reply: []string{"Todos los LEDs apagados"}, Mode: 0, step: stepAllOff},
	{Char: '1', Reply: []string{"LED Verde encendido"}, Mode: 1, LED: types.LEDGreen, step: stepOn},
	{Char: '2', Reply: []string{"LED Azul encendido"}, Mode: 2, LED: types.LEDBlue, step: stepOn},
	{Char: '3', Reply: []string{"LED Rojo encendido"}, Mode: 3, LED: types.LEDRed, step: stepOn},
	{Char: '4', Reply: []string{"Todos los LEDs encendidos"}, Mode: 4, LED: types.LEDAll, step: stepOn},
	{Char: 'b', Reply: []string{"Secuencia de parpadeo"}, Mode: NoMode, ReplyFirst: true, step: stepBlinkSequence},
	{Char: 'h', Reply: helpLines, Mode: NoMode},
	{Char: '?', Reply: helpLines, Mode: NoMode},
}

// Help returns the help listing in order.
func Help() []string { return append([]string(nil), helpLines...) }

// Lookup returns the table entry for c.
func Lookup(c byte) (Entry, bool) {
	for _, e := range table {
		if e.Char == c {
			return e, true
		}
	}
	return Entry{}, false
}

// Echo is the reply for characters without a table entry. The byte is
// written as received.
func Echo(c byte) string {
	return "Comando recibido: '" + string([]byte{c}) + "'"
}

// ModeLine is the telemetry line parsed by the host GUIs.
func ModeLine(mode int, label string) string {
	return fmtx.Sprintf("MODE:%d LED:%s", mode, label)
}

// Dispatcher runs commands against an LED bank.
type Dispatcher struct {
	LEDs      *leds.Bank
	Out       LineWriter
	BlinkHalf time.Duration
	Telemetry bool
}

// Handle runs the command for c and returns the lines it wrote. Unknown
// characters are echoed and reported as UnknownCommand.
func (d *Dispatcher) Handle(ctx context.Context, c byte) ([]string, error) {
	e, ok := Lookup(c)
	if !ok {
		line := Echo(c)
		if err := d.Out.WriteLine(line); err != nil {
			return nil, err
		}
		return []string{line}, errcode.UnknownCommand
	}

	var written []string
	write := func(lines ...string) error {
		for _, l := range lines {
			if err := d.Out.WriteLine(l); err != nil {
				return err
			}
			written = append(written, l)
		}
		return nil
	}

	if e.ReplyFirst {
		if err := write(e.Reply...); err != nil {
			return written, err
		}
	}
	if err := d.run(ctx, e); err != nil {
		return written, err
	}
	if !e.ReplyFirst {
		if err := write(e.Reply...); err != nil {
			return written, err
		}
	}
	if d.Telemetry && e.Mode != NoMode {
		if err := write(ModeLine(e.Mode, e.Label())); err != nil {
			return written, err
		}
	}
	return written, nil
}

func (d *Dispatcher) run(ctx context.Context, e Entry) error {
	switch e.step {
	case stepAllOff:
		d.LEDs.AllOff()
	case stepOn:
		return d.LEDs.On(e.LED)
	case stepBlinkSequence:
		for _, id := range []types.LED{types.LEDGreen, types.LEDBlue, types.LEDRed} {
			if err := d.LEDs.Blink(ctx, id, 2, d.BlinkHalf); err != nil {
				return err
			}
		}
	}
	return nil
}
