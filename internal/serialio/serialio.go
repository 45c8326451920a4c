// Package serialio moves bytes between the console UART and the service loop.
package serialio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"uartdiag/errcode"
	"uartdiag/internal/hw"
)

// Event is one received byte.
type Event struct {
	B  byte
	TS time.Time
}

// Reader drains the port whenever it signals Readable.
type Reader struct {
	port  hw.SerialPort
	outQ  chan Event
	drops uint32
	total uint32
}

func NewReader(port hw.SerialPort, outBuf int) *Reader {
	if outBuf <= 0 {
		outBuf = 64
	}
	return &Reader{port: port, outQ: make(chan Event, outBuf)}
}

func (r *Reader) Events() <-chan Event { return r.outQ }

func (r *Reader) Drops() uint32    { return atomic.LoadUint32(&r.drops) }
func (r *Reader) Received() uint32 { return atomic.LoadUint32(&r.total) }

// Start runs the reader goroutine until ctx is done.
func (r *Reader) Start(ctx context.Context) {
	go func() {
		buf := make([]byte, 32)
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.port.Readable():
				r.drain(buf)
			}
		}
	}()
}

func (r *Reader) drain(buf []byte) {
	for r.port.Buffered() > 0 {
		n, _ := r.port.Read(buf)
		if n <= 0 {
			return
		}
		now := time.Now()
		for _, b := range buf[:n] {
			atomic.AddUint32(&r.total, 1)
			select {
			case r.outQ <- Event{B: b, TS: now}:
			default:
				atomic.AddUint32(&r.drops, 1)
			}
		}
	}
}

// Writer sends CRLF-terminated lines. Lines from different goroutines never
// interleave.
type Writer struct {
	mu   sync.Mutex
	port hw.SerialPort
}

var crlf = []byte("\r\n")

func NewWriter(port hw.SerialPort) *Writer { return &Writer{port: port} }

func (w *Writer) WriteLine(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.port.Write([]byte(s)); err != nil {
		return errcode.Wrap(errcode.SerialFailed, "write", err)
	}
	if _, err := w.port.Write(crlf); err != nil {
		return errcode.Wrap(errcode.SerialFailed, "write", err)
	}
	return nil
}

// WriteLines writes each line in order, stopping at the first error.
func (w *Writer) WriteLines(lines ...string) error {
	for _, l := range lines {
		if err := w.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}
