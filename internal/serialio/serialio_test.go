package serialio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"uartdiag/errcode"
	"uartdiag/internal/hw"
)

func recvEvent(ch <-chan Event, d time.Duration) (Event, bool) {
	select {
	case ev := <-ch:
		return ev, true
	case <-time.After(d):
		return Event{}, false
	}
}

func TestReaderEmitsOneEventPerByte(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u := hw.NewFakeUART()
	r := NewReader(u, 8)
	r.Start(ctx)

	u.Inject([]byte("1h?"))
	for _, want := range []byte("1h?") {
		ev, ok := recvEvent(r.Events(), time.Second)
		if !ok {
			t.Fatalf("timeout waiting for %q", want)
		}
		if ev.B != want || ev.TS.IsZero() {
			t.Fatalf("unexpected event %+v (want %q)", ev, want)
		}
	}
	if r.Received() != 3 || r.Drops() != 0 {
		t.Fatalf("counters received=%d drops=%d", r.Received(), r.Drops())
	}
}

func TestReaderDropsWhenConsumerSlow(t *testing.T) {
	u := hw.NewFakeUART()
	r := NewReader(u, 2)

	u.Inject([]byte("abcde"))
	r.drain(make([]byte, 4))

	if r.Received() != 5 || r.Drops() != 3 {
		t.Fatalf("received=%d drops=%d, want 5/3", r.Received(), r.Drops())
	}
	if ev, _ := recvEvent(r.Events(), 10*time.Millisecond); ev.B != 'a' {
		t.Fatalf("first kept byte = %q, want 'a'", ev.B)
	}
}

func TestWriterCRLF(t *testing.T) {
	u := hw.NewFakeUART()
	w := NewWriter(u)

	if err := w.WriteLines("", "LED Verde encendido"); err != nil {
		t.Fatalf("WriteLines: %v", err)
	}
	if got, want := u.Output(), "\r\nLED Verde encendido\r\n"; got != want {
		t.Fatalf("output %q, want %q", got, want)
	}
}

func TestWriterLinesDoNotInterleave(t *testing.T) {
	u := hw.NewFakeUART()
	w := NewWriter(u)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = w.WriteLine("Boton PC13 presionado!")
			}
		}()
	}
	wg.Wait()

	lines := u.Lines()
	if len(lines) != 160 {
		t.Fatalf("got %d lines, want 160", len(lines))
	}
	for _, l := range lines {
		if l != "Boton PC13 presionado!" {
			t.Fatalf("interleaved line %q", l)
		}
	}
}

type failingPort struct{ *hw.FakeUART }

func (failingPort) Write([]byte) (int, error) { return 0, errors.New("tx fault") }

func TestWriterWrapsPortErrors(t *testing.T) {
	w := NewWriter(failingPort{hw.NewFakeUART()})
	if err := w.WriteLine("x"); errcode.Of(err) != errcode.SerialFailed {
		t.Fatalf("expected SerialFailed, got %v", err)
	}
}
