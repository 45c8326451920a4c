package main

import (
	"context"
	"runtime"
	"time"

	"uartdiag/bus"
	"uartdiag/internal/hw"
	"uartdiag/services/config"
	"uartdiag/services/diag"
	"uartdiag/services/heartbeat"
	"uartdiag/types"
)

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			print("/")
		}
		switch v := t.At(i).(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

// printMem prints a compact snapshot of runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}

func main() {
	// Let the debug probe attach before the console starts.
	time.Sleep(1 * time.Second)
	ctx := context.Background()

	board, err := hw.DefaultBoard()
	if err != nil {
		println("[main] no board:", err.Error())
		return
	}
	println("[main] board", board.Name)

	b := bus.NewBus(8)
	mon := b.NewConnection("monitor")
	states := mon.Subscribe(diag.TopicState)
	go func() {
		for m := range states.Channel() {
			printTopicWith("[monitor] <-", m.Topic)
			if st, ok := m.Payload.(types.DiagState); ok {
				println("[monitor] state", st.Level, st.Status)
			}
			printMem()
		}
	}()

	cfg := config.Default()
	cfg.Baud = board.Baud
	config.NewService(cfg, config.Heartbeat{Interval: 30 * time.Second}).Start(ctx, b.NewConnection("config"))

	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	println("[main] starting diag …")
	if err := diag.Run(ctx, b.NewConnection("diag"), board, cfg); err != nil {
		println("[main] diag exited:", err.Error())
	}
}
