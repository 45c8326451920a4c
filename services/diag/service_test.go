package diag

import (
	"context"
	"testing"
	"time"

	"uartdiag/bus"
	"uartdiag/errcode"
	"uartdiag/internal/hw"
	"uartdiag/services/config"
	"uartdiag/types"
)

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Debounce = 5 * time.Millisecond
	cfg.Timings = config.Timings{
		BlinkHalf:  time.Millisecond,
		PressFlash: time.Millisecond,
		PressStep:  time.Millisecond,
		AllOn:      time.Millisecond,
	}
	return cfg
}

type harness struct {
	fb    *hw.FakeBoard
	b     *bus.Bus
	conn  *bus.Connection
	state *bus.Subscription
	done  chan error
}

func start(t *testing.T, ctx context.Context, cfg config.Config) *harness {
	t.Helper()
	h := &harness{fb: hw.NewFakeBoard(), b: bus.NewBus(32), done: make(chan error, 1)}
	h.conn = h.b.NewConnection("test")
	h.state = h.conn.Subscribe(TopicState)

	svcConn := h.b.NewConnection("diag")
	go func() { h.done <- Run(ctx, svcConn, h.fb.Board(), cfg) }()
	h.waitState(t, "ready")
	return h
}

func (h *harness) waitState(t *testing.T, level string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-h.state.Channel():
			if st, ok := m.Payload.(types.DiagState); ok && st.Level == level {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for state %q", level)
		}
	}
}

func (h *harness) waitLine(t *testing.T, line string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, l := range h.fb.UART.Lines() {
			if l == line {
				return
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("line %q never written; output %q", line, h.fb.UART.Output())
}

func indexOf(lines []string, want string) int {
	for i, l := range lines {
		if l == want {
			return i
		}
	}
	return -1
}

func TestBootBannerAndStartupSequence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fb := hw.NewFakeBoard()
	fb.Green.Record()
	fb.Red.Record()
	b := bus.NewBus(32)
	conn := b.NewConnection("test")
	state := conn.Subscribe(TopicState)
	go func() { _ = Run(ctx, b.NewConnection("diag"), fb.Board(), fastConfig()) }()

	h := &harness{fb: fb, b: b, conn: conn, state: state}
	h.waitState(t, "ready")

	lines := fb.UART.Lines()
	if len(lines) < len(banner) {
		t.Fatalf("banner incomplete: %q", lines)
	}
	for i, want := range banner {
		if lines[i] != want {
			t.Fatalf("banner line %d = %q, want %q", i, lines[i], want)
		}
	}
	if got := fb.UART.Format(); got != types.Console8N1(9600) {
		t.Fatalf("serial format %+v", got)
	}
	// Green: one blink, then the all-on flash.
	var lit int
	for _, v := range fb.Green.History() {
		if v {
			lit++
		}
	}
	if lit != 2 {
		t.Fatalf("green lit %d times during boot, want 2", lit)
	}
	if fb.LEDState().Any() {
		t.Fatal("LEDs should be off once ready")
	}
}

func TestSerialCommandsDriveLEDs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := start(t, ctx, fastConfig())

	ledSub := h.conn.Subscribe(TopicLEDState)
	h.fb.UART.ResetOutput()
	h.fb.UART.Inject([]byte("1\r\n"))
	h.waitLine(t, "LED Verde encendido")
	if got := h.fb.LEDState(); got != (types.LEDState{Green: true}) {
		t.Fatalf("LEDs %+v after '1'", got)
	}

	h.fb.UART.Inject([]byte("x"))
	h.waitLine(t, "Comando recibido: 'x'")
	if lines := h.fb.UART.Lines(); len(lines) != 2 {
		t.Fatalf("CR/LF should be ignored, got %q", lines)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case m := <-ledSub.Channel():
			if st := m.Payload.(types.LEDState); st.Green && !st.Blue && !st.Red {
				return
			}
		case <-deadline:
			t.Fatal("no retained LED state for green")
		}
	}
}

func TestLineEndingsEchoedWhenNotIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := fastConfig()
	cfg.IgnoreLineEndings = false
	h := start(t, ctx, cfg)

	h.fb.UART.ResetOutput()
	h.fb.UART.Inject([]byte("\r"))
	h.waitLine(t, "Comando recibido: '\r'")
}

func TestButtonPressSequenceAndProcessedLine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := start(t, ctx, fastConfig())

	btnSub := h.conn.Subscribe(TopicButtonEvent)
	h.fb.UART.ResetOutput()
	h.fb.Blue.Record()
	h.fb.Button.Press()

	h.waitLine(t, ProcessedLine)
	lines := h.fb.UART.Lines()
	p, d := indexOf(lines, "Boton PC13 presionado!"), indexOf(lines, ProcessedLine)
	if p < 0 || d < p {
		t.Fatalf("press lines out of order: %q", lines)
	}
	// Blue: lit in the all-on flash and again on its own step.
	var lit int
	for _, v := range h.fb.Blue.History() {
		if v {
			lit++
		}
	}
	if lit != 2 {
		t.Fatalf("blue lit %d times, want 2", lit)
	}
	if h.fb.LEDState().Any() {
		t.Fatal("LEDs should be off after the press sequence")
	}
	select {
	case m := <-btnSub.Channel():
		if ev := m.Payload.(types.ButtonEvent); !ev.Pressed {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no button event published")
	}
}

func TestTelemetryLines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := fastConfig()
	cfg.Telemetry = true
	h := start(t, ctx, cfg)

	h.fb.UART.Inject([]byte("2"))
	h.waitLine(t, "MODE:2 LED:BLUE")
	h.fb.Button.Press()
	h.waitLine(t, "BTN:1")
	h.waitLine(t, "BTN:0")

	lines := h.fb.UART.Lines()
	if down, up := indexOf(lines, "BTN:1"), indexOf(lines, "BTN:0"); up < down {
		t.Fatalf("release reported before press: %q", lines)
	}
}

func count(lines []string, want string) int {
	var n int
	for _, l := range lines {
		if l == want {
			n++
		}
	}
	return n
}

func TestBouncyPressIsOneAction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := fastConfig()
	cfg.Debounce = 50 * time.Millisecond
	h := start(t, ctx, cfg)

	stats := h.conn.Subscribe(TopicStats)
	h.fb.UART.ResetOutput()
	for i := 0; i < 5; i++ {
		h.fb.Button.Press()
	}
	h.waitLine(t, ProcessedLine)
	time.Sleep(150 * time.Millisecond)

	lines := h.fb.UART.Lines()
	if n := count(lines, PressLine("PC13")); n != 1 {
		t.Fatalf("%d press lines for one bouncy press: %q", n, lines)
	}
	if n := count(lines, ProcessedLine); n != 1 {
		t.Fatalf("%d processed lines for one bouncy press: %q", n, lines)
	}

	var last types.DiagStats
	for {
		select {
		case m := <-stats.Channel():
			last = m.Payload.(types.DiagStats)
			continue
		default:
		}
		break
	}
	if last.Presses != 1 {
		t.Fatalf("stats report %d presses, want 1", last.Presses)
	}
}

func TestControlCommandRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := start(t, ctx, fastConfig())

	rctx, rcancel := context.WithTimeout(ctx, time.Second)
	defer rcancel()
	rep, err := h.conn.RequestWait(rctx, h.conn.NewMessage(TopicCommand, "3", false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	cr := rep.Payload.(types.CommandReply)
	if !cr.OK || len(cr.Lines) != 1 || cr.Lines[0] != "LED Rojo encendido" {
		t.Fatalf("reply %+v", cr)
	}
	if got := h.fb.LEDState(); got != (types.LEDState{Red: true}) {
		t.Fatalf("LEDs %+v", got)
	}

	rep, err = h.conn.RequestWait(rctx, h.conn.NewMessage(TopicCommand, "too long", false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	if cr := rep.Payload.(types.CommandReply); cr.OK || cr.Error != string(errcode.InvalidPayload) {
		t.Fatalf("reply %+v", cr)
	}

	rep, err = h.conn.RequestWait(rctx, h.conn.NewMessage(TopicCommand, byte('q'), false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	if cr := rep.Payload.(types.CommandReply); cr.OK || cr.Error != string(errcode.UnknownCommand) {
		t.Fatalf("reply %+v", cr)
	}
}

func TestConfigUpdateEnablesTelemetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := start(t, ctx, fastConfig())

	cfg := fastConfig()
	cfg.Telemetry = true
	cfg.Baud = 115200 // ignored until restart
	h.conn.Publish(h.conn.NewMessage(config.TopicDiag, cfg, true))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.fb.UART.Inject([]byte("0"))
		time.Sleep(10 * time.Millisecond)
		if indexOf(h.fb.UART.Lines(), "MODE:0 LED:NONE") >= 0 {
			if got := h.fb.UART.Format().Baud; got != 9600 {
				t.Fatalf("baud changed to %d", got)
			}
			return
		}
	}
	t.Fatal("telemetry never enabled by config update")
}

func TestStopTurnsLEDsOff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := start(t, ctx, fastConfig())

	h.fb.UART.Inject([]byte("4"))
	h.waitLine(t, "Todos los LEDs encendidos")
	cancel()

	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if h.fb.LEDState().Any() {
		t.Fatal("LEDs should be off after stop")
	}
	if h.fb.UART.Open() {
		t.Fatal("serial port should be closed after stop")
	}
	h.waitState(t, "stopped")
}

func TestNewRejectsIncompleteBoard(t *testing.T) {
	b := bus.NewBus(4)
	board := hw.NewFakeBoard().Board()
	board.Serial = nil
	if _, err := New(b.NewConnection("x"), board, fastConfig()); err != errcode.UnknownBoard {
		t.Fatalf("expected UnknownBoard, got %v", err)
	}
}
