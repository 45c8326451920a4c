// Package button turns raw button interrupts into debounced press events.
package button

import (
	"context"
	"sync/atomic"
	"time"

	"uartdiag/internal/hw"
)

// Event is delivered from the worker to the service loop.
type Event struct {
	Pressed bool
	TS      time.Time
}

type Config struct {
	Pin        hw.IRQPin
	Pull       hw.Pull
	Edges      hw.Edge
	ActiveHigh bool
	Debounce   time.Duration
}

type Worker struct {
	cfg Config

	// Written by the ISR; must never block it.
	isrQ chan bool
	outQ chan Event

	lastLevel bool
	lastEvent time.Time

	drops    uint32
	accepted uint32
}

func New(cfg Config, isrBuf, outBuf int) *Worker {
	if isrBuf <= 0 {
		isrBuf = 16
	}
	if outBuf <= 0 {
		outBuf = 8
	}
	return &Worker{
		cfg:  cfg,
		isrQ: make(chan bool, isrBuf),
		outQ: make(chan Event, outBuf),
	}
}

// Start configures the pin, installs the interrupt handler and runs the
// worker until ctx is done. The handler is removed on exit.
func (w *Worker) Start(ctx context.Context) error {
	pin := w.cfg.Pin
	if err := pin.ConfigureInput(w.cfg.Pull); err != nil {
		return err
	}
	w.lastLevel = w.pressed(pin.Get())

	handler := func() { w.isr(pin.Get()) }
	edges := w.cfg.Edges
	if edges == hw.EdgeNone {
		edges = hw.EdgeBoth
	}
	if err := pin.SetIRQ(edges, handler); err != nil {
		return err
	}

	go func() {
		defer func() { _ = pin.ClearIRQ() }()

		// Edges dropped inside the debounce window are re-sampled once it
		// closes so a short tap still reports its release.
		recheck := time.NewTimer(time.Hour)
		stopTimer(recheck)
		defer recheck.Stop()
		arm := func(wait time.Duration) {
			if wait > 0 {
				stopTimer(recheck)
				recheck.Reset(wait)
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case lvl := <-w.isrQ:
				arm(w.handle(lvl, time.Now()))
			case <-recheck.C:
				arm(w.handle(pin.Get(), time.Now()))
			}
		}
	}()
	return nil
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (w *Worker) Events() <-chan Event { return w.outQ }

// isr runs in interrupt context: a non-blocking send and nothing else.
func (w *Worker) isr(level bool) {
	select {
	case w.isrQ <- level:
	default:
		atomic.AddUint32(&w.drops, 1)
	}
}

func (w *Worker) ISRDrops() uint32 { return atomic.LoadUint32(&w.drops) }
func (w *Worker) Accepted() uint32 { return atomic.LoadUint32(&w.accepted) }

func (w *Worker) pressed(level bool) bool {
	if w.cfg.ActiveHigh {
		return level
	}
	return !level
}

func (w *Worker) bothEdges() bool {
	return w.cfg.Edges == hw.EdgeBoth || w.cfg.Edges == hw.EdgeNone
}

// handle applies one sample. When a both-edge sample falls inside the
// debounce window it is dropped and the time left in the window is
// returned so the caller can sample the pin again.
func (w *Worker) handle(level bool, now time.Time) time.Duration {
	p := w.pressed(level)

	if !w.lastEvent.IsZero() {
		if left := w.cfg.Debounce - now.Sub(w.lastEvent); left > 0 {
			if w.bothEdges() {
				return left
			}
			return 0
		}
	}
	// With a single configured edge the pin may already have bounced back by
	// the time it is sampled; only a sample at the active level is a press.
	if !w.bothEdges() {
		if !p {
			return 0
		}
	} else if p == w.lastLevel {
		return 0
	}

	w.lastLevel = p
	w.lastEvent = now
	if p {
		atomic.AddUint32(&w.accepted, 1)
	}
	select {
	case w.outQ <- Event{Pressed: p, TS: now}:
	default:
		// drop to protect the loop if the consumer is slow
	}
	return 0
}
