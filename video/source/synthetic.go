package source

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SyntheticOptions configures a Synthetic source.
type SyntheticOptions struct {
	Width, Height int
	FPS           int

	// FailOpen simulates a missing camera.
	FailOpen bool
	// FailAfter, if non-zero, simulates device loss after that many frames.
	FailAfter int
}

// Synthetic generates a moving BGR test pattern. It stands in for a camera in
// tests and on machines without one.
type Synthetic struct {
	opts SyntheticOptions

	l    sync.Mutex
	open bool
}

func NewSynthetic(opts SyntheticOptions) *Synthetic {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	return &Synthetic{opts: opts}
}

func (s *Synthetic) Open(ctx context.Context) (Handle, error) {
	if s.opts.FailOpen {
		return nil, fmt.Errorf("%w: synthetic device disabled", ErrDeviceUnavailable)
	}
	if s.opts.Width <= 0 || s.opts.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid synthetic geometry %dx%d", ErrDeviceUnavailable, s.opts.Width, s.opts.Height)
	}
	s.l.Lock()
	defer s.l.Unlock()
	if s.open {
		return nil, fmt.Errorf("%w: synthetic device busy", ErrDeviceUnavailable)
	}
	s.open = true
	return &syntheticHandle{
		s:      s,
		ticker: time.NewTicker(time.Second / time.Duration(s.opts.FPS)),
	}, nil
}

type syntheticHandle struct {
	s      *Synthetic
	ticker *time.Ticker
	n      int
	closed bool
}

func (h *syntheticHandle) Next(ctx context.Context) (Frame, error) {
	if h.closed {
		panic("synthetic: Next called on released device")
	}
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case t := <-h.ticker.C:
		if h.s.opts.FailAfter > 0 && h.n >= h.s.opts.FailAfter {
			return Frame{}, fmt.Errorf("%w: synthetic device lost after %d frames", ErrCapture, h.n)
		}
		f := Pattern(h.s.opts.Width, h.s.opts.Height, h.n)
		f.Time = t
		h.n++
		return f, nil
	}
}

func (h *syntheticHandle) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.ticker.Stop()
	h.s.l.Lock()
	h.s.open = false
	h.s.l.Unlock()
}

// Pattern draws a diagonal gradient shifted by n, as an 8-bit BGR frame.
func Pattern(width, height, n int) Frame {
	f := Frame{
		Width:    width,
		Height:   height,
		Depth:    8,
		Channels: 3,
		Data:     make([]byte, width*height*3),
	}
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.Data[i] = byte(x + n)
			f.Data[i+1] = byte(y + n)
			f.Data[i+2] = byte(x + y + 2*n)
			i += 3
		}
	}
	return f
}
