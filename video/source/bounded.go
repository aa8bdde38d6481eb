package source

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BlockingReader is a device whose reads cannot be interrupted.
type BlockingReader interface {
	// Read blocks until a frame or a failure is available.
	Read() (Frame, error)
	// Release frees the device. It is called exactly once, never while a
	// Read is running.
	Release()
}

type readResult struct {
	frame Frame
	err   error
}

// boundedHandle turns a BlockingReader into a Handle whose Next returns
// after at most timeout. At most one Read is in flight; when Next gives up
// early its result is picked up by the following Next.
//
// Close never waits for a stuck Read. If one is in flight the reader
// goroutine releases the device once Read returns.
type boundedHandle struct {
	name    string
	r       BlockingReader
	timeout time.Duration

	l       sync.Mutex
	pending chan readResult
	reading bool
	closed  bool
}

// NewBoundedHandle wraps r. name is used in error messages.
func NewBoundedHandle(name string, r BlockingReader, timeout time.Duration) Handle {
	return &boundedHandle{
		name:    name,
		r:       r,
		timeout: timeout,
	}
}

func (h *boundedHandle) read(c chan<- readResult) {
	f, err := h.r.Read()

	h.l.Lock()
	h.reading = false
	closed := h.closed
	h.l.Unlock()

	if closed {
		h.r.Release()
		return
	}
	c <- readResult{frame: f, err: err}
}

func (h *boundedHandle) Next(ctx context.Context) (Frame, error) {
	h.l.Lock()
	if h.closed {
		h.l.Unlock()
		panic("source: Next called on released device " + h.name)
	}
	if h.pending == nil {
		h.pending = make(chan readResult, 1)
		h.reading = true
		go h.read(h.pending)
	}
	pending := h.pending
	h.l.Unlock()

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case r := <-pending:
		h.l.Lock()
		h.pending = nil
		h.l.Unlock()
		return r.frame, r.err
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-timer.C:
		return Frame{}, fmt.Errorf("%w: no frame from %v in %v", ErrCapture, h.name, h.timeout)
	}
}

func (h *boundedHandle) Close() {
	h.l.Lock()
	if h.closed {
		h.l.Unlock()
		return
	}
	h.closed = true
	reading := h.reading
	h.pending = nil
	h.l.Unlock()

	if !reading {
		h.r.Release()
	}
}
