// services/diag/service.go
package diag

import (
	"context"
	"errors"
	"time"

	"uartdiag/bus"
	"uartdiag/errcode"
	"uartdiag/internal/button"
	"uartdiag/internal/dispatch"
	"uartdiag/internal/hw"
	"uartdiag/internal/leds"
	"uartdiag/internal/serialio"
	"uartdiag/services/config"
	"uartdiag/types"
)

// Topics published and served by the diagnostic service.
var (
	TopicState       = bus.T("diag", "state")
	TopicStats       = bus.T("diag", "stats")
	TopicLEDState    = bus.T("diag", "led", "state")
	TopicButtonEvent = bus.T("diag", "button", "event")
	TopicSerialRx    = bus.T("diag", "serial", "rx")
	TopicCommand     = bus.T("diag", "control", "command")
)

const stars = "****************************"

var banner = []string{
	"",
	stars,
	"* STM32F767 TEST BÁSICO   *",
	"* USART + LEDs + Botón    *",
	stars,
	"",
	"Presione 'h' o '?' para ayuda",
	"",
}

// ProcessedLine is written once a press has settled.
const ProcessedLine = "Acción de botón procesada en bucle principal"

// PressLine is the notice written for a press on the named button.
func PressLine(button string) string { return "Boton " + button + " presionado!" }

// Banner returns the boot banner lines.
func Banner() []string { return append([]string(nil), banner...) }

type Service struct {
	conn  *bus.Connection
	board *hw.Board
	cfg   config.Config

	out  *serialio.Writer
	leds *leds.Bank
	btn  *button.Worker
	rx   *serialio.Reader
	disp *dispatch.Dispatcher

	// Set by a press, cleared when the settle window closes.
	pending bool
	settle  *time.Timer

	stats     types.DiagStats
	published types.DiagStats
	sentStats bool
}

// Run builds the service and blocks until ctx is cancelled.
func Run(ctx context.Context, conn *bus.Connection, board *hw.Board, cfg config.Config) error {
	s, err := New(conn, board, cfg)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func New(conn *bus.Connection, board *hw.Board, cfg config.Config) (*Service, error) {
	if board == nil || board.Serial == nil || board.Button == nil {
		return nil, errcode.UnknownBoard
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{conn: conn, board: board, cfg: cfg}
	s.out = serialio.NewWriter(board.Serial)

	bank, err := leds.New(board.LEDs, s.publishLEDs)
	if err != nil {
		return nil, err
	}
	s.leds = bank
	s.btn = button.New(button.Config{
		Pin:        board.Button,
		Pull:       board.ButtonPull,
		Edges:      board.ButtonEdges,
		ActiveHigh: board.ActiveHigh,
		Debounce:   cfg.Debounce,
	}, 16, 8)
	s.rx = serialio.NewReader(board.Serial, 64)
	s.disp = &dispatch.Dispatcher{
		LEDs:      bank,
		Out:       s.out,
		BlinkHalf: cfg.Timings.BlinkHalf,
		Telemetry: cfg.Telemetry,
	}
	return s, nil
}

func (s *Service) Run(ctx context.Context) error {
	s.publishState("booting", "configuring")

	if err := s.board.ConfigureSerial(types.Console8N1(s.cfg.Baud)); err != nil {
		s.publishState("error", "serial_config_failed")
		return err
	}
	defer func() {
		if err := s.board.CloseSerial(); err != nil {
			println("[diag] serial close failed:", err.Error())
		}
	}()
	s.leds.AllOff()
	if err := s.btn.Start(ctx); err != nil {
		s.publishState("error", "button_irq_failed")
		return errcode.Wrap(errcode.IRQFailed, "button", err)
	}
	s.rx.Start(ctx)

	cfgSub := s.conn.Subscribe(config.TopicDiag)
	ctrlSub := s.conn.Subscribe(TopicCommand)
	defer s.conn.Disconnect()

	s.settle = time.NewTimer(time.Hour)
	stopTimer(s.settle)
	defer s.settle.Stop()

	if err := s.boot(ctx); err != nil {
		return s.stop(err)
	}
	s.publishState("ready", "running")
	println("[diag] ready on", s.board.Name, "baud", s.cfg.Baud)

	for {
		select {
		case <-ctx.Done():
			return s.stop(nil)

		case ev := <-s.btn.Events():
			s.onButton(ctx, ev)

		case <-s.settle.C:
			s.onSettle()

		case ev := <-s.rx.Events():
			s.onRx(ctx, ev)

		case m, ok := <-ctrlSub.Channel():
			if ok {
				s.onControl(ctx, m)
			}

		case m, ok := <-cfgSub.Channel():
			if ok {
				s.onConfig(m)
			}
		}
		s.publishStats()
	}
}

// boot prints the banner and runs the startup light sequence.
func (s *Service) boot(ctx context.Context) error {
	if err := leds.Sleep(ctx, s.cfg.Timings.BootDelay); err != nil {
		return err
	}
	if err := s.out.WriteLines(banner...); err != nil {
		println("[diag] banner write failed:", err.Error())
	}
	t := s.cfg.Timings
	for _, id := range []types.LED{types.LEDGreen, types.LEDBlue, types.LEDRed} {
		if err := s.leds.Blink(ctx, id, 1, t.BlinkHalf); err != nil {
			return err
		}
	}
	_ = s.leds.On(types.LEDAll)
	err := leds.Sleep(ctx, t.AllOn)
	s.leds.AllOff()
	return err
}

func (s *Service) stop(err error) error {
	s.leds.AllOff()
	s.publishState("stopped", "context_cancelled")
	println("[diag] stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ---- Button ----

func (s *Service) onButton(ctx context.Context, ev button.Event) {
	s.conn.Publish(s.conn.NewMessage(TopicButtonEvent,
		types.ButtonEvent{Pressed: ev.Pressed, TS: ev.TS.UnixMilli()}, false))

	if !ev.Pressed {
		if s.cfg.Telemetry {
			s.writeLine("BTN:0")
		}
		return
	}
	s.writeLine(PressLine(s.board.ButtonName))
	if s.cfg.Telemetry {
		s.writeLine("BTN:1")
	}
	if err := s.pressSequence(ctx); err != nil {
		return
	}
	s.pending = true
	resetTimer(s.settle, s.cfg.Debounce)
}

// pressSequence: all on, off, then each LED in turn, then off.
func (s *Service) pressSequence(ctx context.Context) error {
	t := s.cfg.Timings
	defer s.leds.AllOff()
	_ = s.leds.On(types.LEDAll)
	if err := leds.Sleep(ctx, t.PressFlash); err != nil {
		return err
	}
	s.leds.AllOff()
	for _, id := range []types.LED{types.LEDGreen, types.LEDBlue, types.LEDRed} {
		_ = s.leds.On(id)
		if err := leds.Sleep(ctx, t.PressStep); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) onSettle() {
	if !s.pending {
		return
	}
	s.pending = false
	s.writeLine(ProcessedLine)
}

// ---- Serial ----

func (s *Service) onRx(ctx context.Context, ev serialio.Event) {
	s.conn.Publish(s.conn.NewMessage(TopicSerialRx,
		types.RxByte{B: ev.B, TS: ev.TS.UnixMilli()}, false))
	if s.cfg.IgnoreLineEndings && (ev.B == '\r' || ev.B == '\n') {
		return
	}
	s.handle(ctx, ev.B)
}

func (s *Service) handle(ctx context.Context, c byte) ([]string, error) {
	s.stats.Commands++
	lines, err := s.disp.Handle(ctx, c)
	if err != nil && errcode.Of(err) != errcode.UnknownCommand {
		println("[diag] command", string(rune(c)), "failed:", err.Error())
	}
	return lines, err
}

// ---- Bus control ----

func (s *Service) onControl(ctx context.Context, m *bus.Message) {
	var c byte
	switch v := m.Payload.(type) {
	case byte:
		c = v
	case rune:
		c = byte(v)
	case string:
		if len(v) != 1 {
			s.conn.Reply(m, types.CommandReply{Error: string(errcode.InvalidPayload)}, false)
			return
		}
		c = v[0]
	default:
		s.conn.Reply(m, types.CommandReply{Error: string(errcode.InvalidPayload)}, false)
		return
	}
	lines, err := s.handle(ctx, c)
	rep := types.CommandReply{OK: err == nil, Lines: lines}
	if err != nil {
		rep.Error = string(errcode.Of(err))
	}
	s.conn.Reply(m, rep, false)
}

func (s *Service) onConfig(m *bus.Message) {
	cfg, ok := m.Payload.(config.Config)
	if !ok {
		println("[diag] ignoring config payload of unexpected type")
		return
	}
	if err := cfg.Validate(); err != nil {
		println("[diag] ignoring invalid config:", err.Error())
		return
	}
	if cfg.Baud != s.cfg.Baud {
		println("[diag] baud change needs a restart; keeping", s.cfg.Baud)
		cfg.Baud = s.cfg.Baud
	}
	if cfg.Debounce != s.cfg.Debounce {
		println("[diag] debounce change applies to the settle window only")
	}
	s.cfg = cfg
	s.disp.BlinkHalf = cfg.Timings.BlinkHalf
	s.disp.Telemetry = cfg.Telemetry
}

// ---- Publishing ----

func (s *Service) writeLine(line string) {
	if err := s.out.WriteLine(line); err != nil {
		println("[diag] write failed:", err.Error())
	}
}

func (s *Service) publishLEDs(st types.LEDState) {
	s.conn.Publish(s.conn.NewMessage(TopicLEDState, st, true))
}

func (s *Service) publishState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(TopicState, types.DiagState{
		Level:  level,
		Status: status,
		TS:     time.Now().UnixMilli(),
	}, true))
}

func (s *Service) publishStats() {
	s.stats.Presses = s.btn.Accepted()
	s.stats.RxBytes = s.rx.Received()
	s.stats.RxDrops = s.rx.Drops()
	s.stats.IRQDrops = s.btn.ISRDrops()
	if s.sentStats && s.stats == s.published {
		return
	}
	s.published, s.sentStats = s.stats, true
	s.conn.Publish(s.conn.NewMessage(TopicStats, s.stats, true))
}
