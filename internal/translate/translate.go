// Package translate renders diagctl summaries in the user's language.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys are en-US Sprintf formats.
const (
	Connected  = "Connected to %s at %s baud"
	Sent       = "Sent %q"
	LEDsOff    = "LEDs: all off"
	LEDsOn     = "LEDs: %s"
	ModeIs     = "Mode %d"
	Pressed    = "Button %s pressed"
	Released   = "Button released"
	Processed  = "Button press processed (%d so far)"
	Blinking   = "Blink sequence running"
	Echoed     = "Board did not recognise %q"
	HelpLine   = "Help: %s"
	Unknown    = "Unrecognised line: %s"
	Green      = "green"
	Blue       = "blue"
	Red        = "red"
	Quit       = "Press Esc or Ctrl-C to quit"
	Disconnect = "Disconnected"
)

var spanish = map[string]string{
	Connected:  "Conectado a %s a %s baudios",
	Sent:       "Enviado %q",
	LEDsOff:    "LEDs: todos apagados",
	LEDsOn:     "LEDs: %s",
	ModeIs:     "Modo %d",
	Pressed:    "Botón %s presionado",
	Released:   "Botón liberado",
	Processed:  "Pulsación procesada (%d hasta ahora)",
	Blinking:   "Secuencia de parpadeo en curso",
	Echoed:     "La placa no reconoce %q",
	HelpLine:   "Ayuda: %s",
	Unknown:    "Línea no reconocida: %s",
	Green:      "verde",
	Blue:       "azul",
	Red:        "rojo",
	Quit:       "Pulse Esc o Ctrl-C para salir",
	Disconnect: "Desconectado",
}

var (
	mu      sync.RWMutex
	printer *message.Printer
)

func init() {
	for key, msg := range spanish {
		if err := message.SetString(language.Spanish, key, msg); err != nil {
			log.Printf("translate: catalog: %v", err)
		}
		if err := message.SetString(language.English, key, key); err != nil {
			log.Printf("translate: catalog: %v", err)
		}
	}

	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("translate: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// SetLanguage overrides the detected locale, e.g. "es" or "en-GB".
func SetLanguage(tags ...string) {
	p := message.NewPrinter(message.MatchLanguage(tags...))
	mu.Lock()
	printer = p
	mu.Unlock()
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	mu.RLock()
	p := printer
	mu.RUnlock()
	return p.Sprintf(key, args...)
}
