package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDeviceUnavailable is returned by Open when no capture device is found.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrCapture is returned by Next when the device is lost mid-stream or a
	// frame cannot be decoded.
	ErrCapture = errors.New("capture error")
)

// Frame is one decoded raster image. Frames are treated as immutable once
// produced; consumers that need to keep one beyond a dispatch cycle must
// Clone it.
type Frame struct {
	Width    int
	Height   int
	Depth    int // Bits per channel, 8 or 16.
	Channels int

	// Data holds rows top to bottom with interleaved channels (BGR order for
	// color frames), without padding.
	Data []byte

	// Seq is assigned by the acquisition loop in production order.
	Seq  uint64
	Time time.Time
}

// Stride returns the number of bytes per row.
func (f Frame) Stride() int {
	return f.Width * f.Channels * f.Depth / 8
}

// Empty is true for frames with no pixels.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0
}

// Validate checks the buffer length against the declared geometry.
func (f Frame) Validate() error {
	if f.Depth != 8 && f.Depth != 16 {
		return fmt.Errorf("unsupported depth %d", f.Depth)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	if want := f.Stride() * f.Height; len(f.Data) != want {
		return fmt.Errorf("frame buffer is %d bytes, want %d for %dx%dx%d", len(f.Data), want, f.Width, f.Height, f.Channels)
	}
	return nil
}

func (f Frame) Clone() Frame {
	n := f
	n.Data = make([]byte, len(f.Data))
	copy(n.Data, f.Data)
	return n
}

func (f Frame) String() string {
	return fmt.Sprintf("frame #%d %dx%d c%d d%d", f.Seq, f.Width, f.Height, f.Channels, f.Depth)
}

// Source defines a capture device, such as a camera.
type Source interface {
	// Open acquires the device. It fails with ErrDeviceUnavailable if no
	// device can be opened.
	Open(ctx context.Context) (Handle, error)
}

// Handle is an open capture device. At most one Handle is open per Source.
type Handle interface {
	// Next blocks until the most recent frame is available, the device fails
	// (ErrCapture) or ctx is done (ctx.Err()). Calling Next after Close panics.
	Next(ctx context.Context) (Frame, error)

	// Close releases the device.
	Close()
}
