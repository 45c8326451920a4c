package heartbeat

import (
	"context"
	"time"

	"uartdiag/bus"
	"uartdiag/services/config"
	"uartdiag/services/diag"
	"uartdiag/types"
	"uartdiag/x/fmtx"
)

type Service struct {
	// Log receives each heartbeat line. Defaults to println.
	Log func(string)

	started time.Time
	stats   types.DiagStats
}

func (s *Service) log(line string) {
	if s.Log != nil {
		s.Log(line)
		return
	}
	println(line)
}

// Line formats one heartbeat.
func Line(uptime time.Duration, st types.DiagStats) string {
	return fmtx.Sprintf("[hb] up=%ds presses=%d rx=%d cmds=%d drops=%d/%d",
		int(uptime/time.Second), st.Presses, st.RxBytes, st.Commands, st.RxDrops, st.IRQDrops)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(config.TopicHeartbeat)
	statSub := conn.Subscribe(diag.TopicStats)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(statSub)

	// Silent until a config with a positive interval arrives.
	tick := time.NewTicker(time.Hour)
	tick.Stop()
	defer tick.Stop()
	enabled := false

	for {
		select {
		case <-ctx.Done():
			println("[hb] stopping")
			return
		case <-tick.C:
			if enabled {
				s.log(Line(time.Since(s.started), s.stats))
			}
		case m := <-statSub.Channel():
			if st, ok := m.Payload.(types.DiagStats); ok {
				s.stats = st
			}
		case m := <-cfgSub.Channel():
			hb, ok := m.Payload.(config.Heartbeat)
			if !ok {
				println("[hb] ignoring config payload of unexpected type")
				continue
			}
			if hb.Interval <= 0 {
				enabled = false
				tick.Stop()
				println("[hb] disabled")
				continue
			}
			enabled = true
			tick.Reset(hb.Interval)
			println("[hb] interval set to", int(hb.Interval/time.Millisecond), "ms")
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.started = time.Now()
	go s.serviceLoop(ctx, conn)
	return nil
}
