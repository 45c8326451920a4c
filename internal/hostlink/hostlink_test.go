package hostlink

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"uartdiag/internal/dispatch"
	"uartdiag/types"
)

func TestParseReplies(t *testing.T) {
	assert := assert.New(t)

	ev := Parse("LED Azul encendido")
	assert.Equal(KindLED, ev.Kind)
	assert.Equal(2, ev.Mode)
	assert.Equal(types.LEDState{Blue: true}, ev.LEDs)
	assert.False(ev.Telemetry)

	ev = Parse("Todos los LEDs apagados\r")
	assert.Equal(KindLED, ev.Kind)
	assert.Equal(0, ev.Mode)
	assert.False(ev.LEDs.Any())

	assert.Equal(KindBlink, Parse("Secuencia de parpadeo").Kind)
	assert.Equal(KindHelp, Parse("--- Comandos disponibles ---").Kind)
	assert.Equal(KindHelp, Parse("h o ?: Mostrar esta ayuda").Kind)
	assert.Equal(KindProcessed, Parse("Acción de botón procesada en bucle principal").Kind)
	assert.Equal(KindBanner, Parse("* USART + LEDs + Botón    *").Kind)
	assert.Equal(KindBlank, Parse("  ").Kind)
	assert.Equal(KindUnknown, Parse("garbage").Kind)
}

func TestParseTelemetry(t *testing.T) {
	assert := assert.New(t)

	ev := Parse("MODE:4 LED:ALL")
	assert.Equal(KindLED, ev.Kind)
	assert.True(ev.Telemetry)
	assert.Equal(4, ev.Mode)
	assert.True(ev.LEDs.All())

	ev = Parse("MODE:0 LED:NONE")
	assert.Equal(0, ev.Mode)
	assert.False(ev.LEDs.Any())

	assert.Equal(KindUnknown, Parse("MODE:x LED:RED").Kind)

	ev = Parse("BTN:1")
	assert.Equal(KindButton, ev.Kind)
	assert.True(ev.Pressed)
	assert.True(ev.Telemetry)
	assert.False(Parse("BTN:0").Pressed)
}

func TestParseButtonAndEcho(t *testing.T) {
	assert := assert.New(t)

	ev := Parse("Boton PC13 presionado!")
	assert.Equal(KindButton, ev.Kind)
	assert.Equal("PC13", ev.Button)
	assert.True(ev.Pressed)

	ev = Parse("Comando recibido: 'z'")
	assert.Equal(KindEcho, ev.Kind)
	assert.Equal(byte('z'), ev.Char)

	ev = Parse("Comando recibido: ' '\r\n")
	assert.Equal(KindEcho, ev.Kind)
	assert.Equal(byte(' '), ev.Char)
	assert.Equal(dispatch.NoMode, ev.Mode)
}

func TestModelTracksLEDs(t *testing.T) {
	assert := assert.New(t)
	m := NewModel()

	assert.True(m.Apply(Parse("LED Rojo encendido")))
	assert.Equal(types.LEDState{Red: true}, m.LEDs)
	assert.Equal(3, m.Mode)

	// Matching telemetry changes nothing.
	assert.False(m.Apply(Parse("MODE:3 LED:RED")))

	assert.True(m.Apply(Parse("Boton PC13 presionado!")))
	assert.Equal(1, m.Presses)
	assert.False(m.LEDs.Any())

	m.Apply(Parse("BTN:1"))
	assert.Equal(1, m.Presses)
	assert.True(m.Button)

	m.Apply(Parse("Acción de botón procesada en bucle principal"))
	m.Apply(Parse("???"))
	assert.Equal(1, m.Processed)
	assert.Equal(1, m.Unknown)

	m.Apply(Parse("Todos los LEDs encendidos"))
	m.Apply(Parse("****************************"))
	assert.False(m.LEDs.Any())
	assert.Equal(dispatch.NoMode, m.Mode)
}

func TestLineSplitter(t *testing.T) {
	assert := assert.New(t)
	var ls LineSplitter

	assert.Empty(ls.Feed([]byte("LED Ver")))
	assert.Equal("LED Ver", ls.Pending())
	assert.Equal([]string{"LED Verde encendido", "MODE:1 LED:GREEN"},
		ls.Feed([]byte("de encendido\r\n\r\nMODE:1 LED:GREEN\rBT")))
	assert.Equal([]string{"BTN:1"}, ls.Feed([]byte("N:1\n")))

	long := make([]byte, maxLine+3)
	for i := range long {
		long[i] = 'a'
	}
	lines := ls.Feed(long)
	assert.Len(lines, 1)
	assert.Len(lines[0], maxLine)
	assert.Equal("aaa", ls.Pending())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "processed", KindProcessed.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
