// Package hostlink interprets the console output of the diagnostic firmware
// on the host side of the serial link.
package hostlink

import (
	"strconv"
	"strings"

	"uartdiag/internal/dispatch"
	"uartdiag/services/diag"
	"uartdiag/types"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindBlank
	KindBanner
	KindLED       // a mode reply or a MODE:/LED: telemetry line
	KindButton    // press notice or BTN:n
	KindProcessed // the settled-press line
	KindBlink
	KindHelp
	KindEcho
)

var kindNames = [...]string{"unknown", "blank", "banner", "led", "button", "processed", "blink", "help", "echo"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Event is one classified firmware line.
type Event struct {
	Kind Kind
	Line string

	Mode      int // dispatch.NoMode when the line carries no mode
	LEDs      types.LEDState
	Telemetry bool // parsed from MODE:/BTN: rather than a reply string

	Pressed bool
	Button  string // pin name from the press notice

	Char byte // echoed byte
}

const (
	echoPrefix = "Comando recibido: '"
	pressHead  = "Boton "
	pressTail  = " presionado!"
)

var (
	replies = map[string]dispatch.Entry{}
	help    = map[string]bool{}
	banner  = map[string]bool{}
	blink   string
)

func init() {
	for c := 0; c < 256; c++ {
		e, ok := dispatch.Lookup(byte(c))
		if !ok {
			continue
		}
		switch {
		case e.Mode != dispatch.NoMode:
			replies[e.Reply[0]] = e
		case e.ReplyFirst:
			blink = e.Reply[0]
		}
	}
	for _, l := range dispatch.Help() {
		help[strings.TrimSpace(l)] = true
	}
	for _, l := range diag.Banner() {
		if l != "" {
			banner[l] = true
		}
	}
}

// Parse classifies one line. Surrounding whitespace and line endings are
// ignored, except for an echoed whitespace byte.
func Parse(line string) Event {
	if strings.HasPrefix(line, echoPrefix) {
		rest := strings.TrimRight(line[len(echoPrefix):], "\r\n")
		if len(rest) == 2 && rest[1] == '\'' {
			return Event{Kind: KindEcho, Line: line, Mode: dispatch.NoMode, Char: rest[0]}
		}
	}

	s := strings.TrimSpace(line)
	ev := Event{Kind: KindUnknown, Line: s, Mode: dispatch.NoMode}

	switch {
	case s == "":
		ev.Kind = KindBlank
	case strings.Contains(s, "MODE:") && strings.Contains(s, "LED:"):
		if parseMode(s, &ev) {
			ev.Kind = KindLED
			ev.Telemetry = true
		}
	case strings.Contains(s, "BTN:"):
		if n, ok := leadingInt(s[strings.Index(s, "BTN:")+4:]); ok {
			ev.Kind = KindButton
			ev.Telemetry = true
			ev.Pressed = n != 0
		}
	case strings.HasPrefix(s, pressHead) && strings.HasSuffix(s, pressTail):
		ev.Kind = KindButton
		ev.Pressed = true
		ev.Button = s[len(pressHead) : len(s)-len(pressTail)]
	case s == diag.ProcessedLine:
		ev.Kind = KindProcessed
	case s == blink:
		ev.Kind = KindBlink
	case help[s]:
		ev.Kind = KindHelp
	case banner[s]:
		ev.Kind = KindBanner
	default:
		if e, ok := replies[s]; ok {
			ev.Kind = KindLED
			ev.Mode = e.Mode
			ev.LEDs = stateFor(e.Label())
		}
	}
	return ev
}

func parseMode(s string, ev *Event) bool {
	n, ok := leadingInt(s[strings.Index(s, "MODE:")+5:])
	if !ok {
		return false
	}
	label := strings.TrimSpace(s[strings.Index(s, "LED:")+4:])
	if i := strings.IndexByte(label, ' '); i >= 0 {
		label = label[:i]
	}
	ev.Mode = n
	ev.LEDs = stateFor(label)
	return true
}

func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

// stateFor maps a telemetry label to LED outputs. NONE and unknown labels
// leave everything off.
func stateFor(label string) types.LEDState {
	switch label {
	case types.LEDGreen.Label():
		return types.LEDState{Green: true}
	case types.LEDBlue.Label():
		return types.LEDState{Blue: true}
	case types.LEDRed.Label():
		return types.LEDState{Red: true}
	case types.LEDAll.Label():
		return types.LEDState{Green: true, Blue: true, Red: true}
	}
	return types.LEDState{}
}

// Model tracks what the board is showing, as far as its output tells.
type Model struct {
	LEDs      types.LEDState
	Mode      int
	Button    bool
	Presses   int
	Processed int
	Unknown   int
}

func NewModel() *Model { return &Model{Mode: dispatch.NoMode} }

// Apply folds ev into the model and reports whether the LED state changed.
func (m *Model) Apply(ev Event) bool {
	before := m.LEDs
	switch ev.Kind {
	case KindLED:
		// Telemetry follows the reply for the same command; both agree.
		m.LEDs = ev.LEDs
		if ev.Mode != dispatch.NoMode {
			m.Mode = ev.Mode
		}
	case KindButton:
		m.Button = ev.Pressed
		if ev.Pressed && !ev.Telemetry {
			m.Presses++
			// The press sequence ends with everything off.
			m.LEDs = types.LEDState{}
		}
	case KindProcessed:
		m.Processed++
	case KindBlink:
		m.LEDs = types.LEDState{}
	case KindBanner:
		m.LEDs = types.LEDState{}
		m.Mode = dispatch.NoMode
	case KindUnknown:
		m.Unknown++
	}
	return m.LEDs != before
}

// maxLine bounds a line that never sees a terminator.
const maxLine = 256

// LineSplitter reassembles lines from a byte stream. CR, LF and CRLF all end
// a line; blank lines are dropped.
type LineSplitter struct {
	buf []byte
}

// Feed consumes p and returns the lines it completed.
func (ls *LineSplitter) Feed(p []byte) []string {
	var out []string
	for _, b := range p {
		if b == '\r' || b == '\n' {
			if len(ls.buf) > 0 {
				out = append(out, string(ls.buf))
				ls.buf = ls.buf[:0]
			}
			continue
		}
		ls.buf = append(ls.buf, b)
		if len(ls.buf) >= maxLine {
			out = append(out, string(ls.buf))
			ls.buf = ls.buf[:0]
		}
	}
	return out
}

// Pending returns the unterminated tail.
func (ls *LineSplitter) Pending() string { return string(ls.buf) }
