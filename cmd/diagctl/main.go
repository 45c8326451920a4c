// diagctl talks to the diagnostic firmware over its console UART.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-tty"
	"github.com/pkg/term"

	"uartdiag/internal/hostlink"
	"uartdiag/internal/translate"
)

var (
	portFlag = flag.String("port", "", "serial device, e.g. /dev/ttyACM0 (required)")
	baudFlag = flag.Int("baud", 9600, "baud rate")
	sendFlag = flag.String("send", "", "send these command characters and exit")
	waitFlag = flag.Duration("wait", 2*time.Second, "time to collect replies after -send")
	langFlag = flag.String("lang", "", "summary language (default: system locale)")
)

func usage() {
	log.Printf("usage: diagctl -port <device> [-baud n] [-send chars [-wait d]] [-lang tag]")
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(log.Ltime)
	flag.Usage = usage
	flag.Parse()
	if *portFlag == "" {
		usage()
		os.Exit(2)
	}
	if *langFlag != "" {
		translate.SetLanguage(*langFlag)
	}

	port, err := term.Open(*portFlag, term.Speed(*baudFlag), term.RawMode)
	if err != nil {
		log.Fatalf("unable to open %s: %v", *portFlag, err)
	}
	defer port.Close()
	log.Print(translate.From(translate.Connected, *portFlag, strconv.Itoa(*baudFlag)))

	done := make(chan struct{})
	go readLoop(port, done)

	if *sendFlag != "" {
		for i := 0; i < len(*sendFlag); i++ {
			send(port, (*sendFlag)[i])
			time.Sleep(50 * time.Millisecond)
		}
		select {
		case <-time.After(*waitFlag):
		case <-done:
		}
		return
	}
	interactive(port, done)
}

func send(w io.Writer, c byte) {
	if _, err := w.Write([]byte{c}); err != nil {
		log.Fatalf("write failed: %v", err)
	}
	log.Print(translate.From(translate.Sent, string(c)))
}

// interactive forwards keystrokes until Esc, Ctrl-C or the port closes.
func interactive(port io.Writer, done <-chan struct{}) {
	keys, err := tty.Open()
	if err != nil {
		log.Fatalf("unable to open terminal: %v", err)
	}
	defer keys.Close()
	restore := keys.MustRaw()
	defer restore()

	log.Print(translate.From(translate.Quit))
	runes := make(chan rune)
	go func() {
		for {
			r, err := keys.ReadRune()
			if err != nil {
				close(runes)
				return
			}
			runes <- r
		}
	}()

	for {
		select {
		case <-done:
			return
		case r, ok := <-runes:
			if !ok || r == 0x1b || r == 0x03 {
				return
			}
			if r < 0x80 {
				send(port, byte(r))
			}
		}
	}
}

func readLoop(port io.Reader, done chan<- struct{}) {
	defer close(done)
	var ls hostlink.LineSplitter
	model := hostlink.NewModel()
	buf := make([]byte, 128)
	for {
		n, err := port.Read(buf)
		for _, line := range ls.Feed(buf[:n]) {
			ev := hostlink.Parse(line)
			model.Apply(ev)
			log.Printf("<-- %s", line)
			if s := describe(ev, model); s != "" {
				log.Printf("    %s", s)
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("read failed: %v", err)
			}
			log.Print(translate.From(translate.Disconnect))
			return
		}
	}
}

func describe(ev hostlink.Event, m *hostlink.Model) string {
	switch ev.Kind {
	case hostlink.KindLED:
		if ev.Telemetry {
			return translate.From(translate.ModeIs, ev.Mode)
		}
		if !m.LEDs.Any() {
			return translate.From(translate.LEDsOff)
		}
		var on []string
		if m.LEDs.Green {
			on = append(on, translate.From(translate.Green))
		}
		if m.LEDs.Blue {
			on = append(on, translate.From(translate.Blue))
		}
		if m.LEDs.Red {
			on = append(on, translate.From(translate.Red))
		}
		return translate.From(translate.LEDsOn, strings.Join(on, ", "))
	case hostlink.KindButton:
		if ev.Telemetry {
			if ev.Pressed {
				return ""
			}
			return translate.From(translate.Released)
		}
		return translate.From(translate.Pressed, ev.Button)
	case hostlink.KindProcessed:
		return translate.From(translate.Processed, m.Processed)
	case hostlink.KindBlink:
		return translate.From(translate.Blinking)
	case hostlink.KindHelp:
		return translate.From(translate.HelpLine, strings.Trim(ev.Line, "- "))
	case hostlink.KindEcho:
		return translate.From(translate.Echoed, string(ev.Char))
	case hostlink.KindUnknown:
		return translate.From(translate.Unknown, ev.Line)
	}
	return ""
}
