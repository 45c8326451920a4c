package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanishCatalog(t *testing.T) {
	assert := assert.New(t)
	SetLanguage("es-ES")

	assert.Equal("Botón PC13 presionado", From(Pressed, "PC13"))
	assert.Equal("Modo 3", From(ModeIs, 3))
	assert.Equal("verde", From(Green))
	assert.Equal("Conectado a COM3 a 115200 baudios", From(Connected, "COM3", "115200"))
}

func TestEnglishFallback(t *testing.T) {
	assert := assert.New(t)
	SetLanguage("en-US")

	assert.Equal("Connected to /dev/ttyACM0 at 115200 baud", From(Connected, "/dev/ttyACM0", "115200"))
	assert.Equal("LEDs: all off", From(LEDsOff))
}

func TestEveryKeyHasSpanish(t *testing.T) {
	for key, msg := range spanish {
		assert.NotEmpty(t, msg, key)
	}
	assert.Len(t, spanish, 17)
}
