// cmd/boardtest/main.go
package main

import (
	"context"
	"time"

	"uartdiag/bus"
	"uartdiag/internal/hw"
	"uartdiag/services/config"
	"uartdiag/services/diag"
	"uartdiag/types"
	"uartdiag/x/fmtx"
)

// ---------- Configuration ----------

const (
	diagReadyTimeout = 5 * time.Second
	replyTimeout     = 2 * time.Second
	stepDelay        = 300 * time.Millisecond
	dwell            = 2 * time.Second

	// Cycles: 0 = loop forever
	cyclesToRun = 0
)

// Each mode command and the LEDs it must leave lit.
var modeSeq = []struct {
	cmd  byte
	want types.LEDState
}{
	{'1', types.LEDState{Green: true}},
	{'2', types.LEDState{Blue: true}},
	{'3', types.LEDState{Red: true}},
	{'4', types.LEDState{Green: true, Blue: true, Red: true}},
	{'0', types.LEDState{}},
}

// ---------- Helpers ----------

func waitDiagReady(c *bus.Connection, d time.Duration) bool {
	sub := c.Subscribe(diag.TopicState)
	defer c.Unsubscribe(sub)

	dead := time.Now().Add(d)
	for time.Now().Before(dead) {
		select {
		case m := <-sub.Channel():
			if st, ok := m.Payload.(types.DiagState); ok && st.Level == "ready" {
				return true
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	return false
}

func command(ctx context.Context, ui *bus.Connection, c byte) (types.CommandReply, bool) {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	rep, err := ui.RequestWait(ctx, ui.NewMessage(diag.TopicCommand, c, false))
	if err != nil {
		println("[boardtest] no reply for", string(rune(c)), err.Error())
		return types.CommandReply{}, false
	}
	cr, ok := rep.Payload.(types.CommandReply)
	return cr, ok
}

// ledState reads the retained LED state.
func ledState(ui *bus.Connection) (types.LEDState, bool) {
	sub := ui.Subscribe(diag.TopicLEDState)
	defer ui.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		st, ok := m.Payload.(types.LEDState)
		return st, ok
	case <-time.After(100 * time.Millisecond):
		return types.LEDState{}, false
	}
}

func ledFlashPassFail(ctx context.Context, ui *bus.Connection, pass bool) {
	if pass {
		// Double short green
		for i := 0; i < 2; i++ {
			command(ctx, ui, '1')
			time.Sleep(120 * time.Millisecond)
			command(ctx, ui, '0')
			time.Sleep(200 * time.Millisecond)
		}
	} else {
		// Single long red
		command(ctx, ui, '3')
		time.Sleep(400 * time.Millisecond)
		command(ctx, ui, '0')
		time.Sleep(200 * time.Millisecond)
	}
}

// ---------- Main ----------

func main() {
	ctx := context.Background()

	board, err := hw.DefaultBoard()
	if err != nil {
		println("[boardtest] no board:", err.Error())
		return
	}

	b := bus.NewBus(8)
	ui := b.NewConnection("ui")
	go func() {
		if err := diag.Run(ctx, b.NewConnection("diag"), board, config.Default()); err != nil {
			println("[boardtest] diag exited:", err.Error())
		}
	}()

	if !waitDiagReady(ui, diagReadyTimeout) {
		println("[boardtest] diag not ready within timeout; continuing")
	}

	cycle := 0
	for {
		cycle++
		println(fmtx.Sprintf("=== boardtest: cycle %d ===", cycle))

		var miss []string
		for _, step := range modeSeq {
			cr, ok := command(ctx, ui, step.cmd)
			if !ok || !cr.OK {
				miss = append(miss, fmtx.Sprintf("%c:reply", step.cmd))
				continue
			}
			time.Sleep(stepDelay)
			if st, ok := ledState(ui); !ok || st != step.want {
				miss = append(miss, fmtx.Sprintf("%c:leds", step.cmd))
			}
		}
		if cr, ok := command(ctx, ui, 'h'); !ok || len(cr.Lines) != 8 {
			miss = append(miss, "help")
		}
		time.Sleep(dwell)

		pass := len(miss) == 0
		if pass {
			println("[PASS] mode commands drove the LEDs as expected")
		} else {
			println("[FAIL] mismatched steps:", len(miss))
			for _, m := range miss {
				println("  ", m)
			}
		}
		ledFlashPassFail(ctx, ui, pass)

		if cyclesToRun > 0 && cycle >= cyclesToRun {
			println("completed", cycle, "cycles; halting")
			return
		}
	}
}
