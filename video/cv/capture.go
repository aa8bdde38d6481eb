// Package cv adapts OpenCV (via gocv) capture devices, video writers and
// windows to the pipeline interfaces.
package cv

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"videorecord/video/source"
)

// DefaultReadTimeout bounds a single frame read. A camera that delivers
// nothing for this long is treated as lost.
const DefaultReadTimeout = 2 * time.Second

// Capture is a Source backed by an OpenCV VideoCapture. Device is either a
// camera index ("0") or a file/stream URI.
type Capture struct {
	Device      string
	ReadTimeout time.Duration
}

func NewCapture(device string, timeout time.Duration) *Capture {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	return &Capture{Device: device, ReadTimeout: timeout}
}

func (c *Capture) Open(ctx context.Context) (source.Handle, error) {
	cap, err := gocv.OpenVideoCapture(c.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", source.ErrDeviceUnavailable, c.Device, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: %v", source.ErrDeviceUnavailable, c.Device)
	}
	log.WithField("device", c.Device).Infof("Opened capture device (%vx%v)",
		cap.Get(gocv.VideoCaptureFrameWidth), cap.Get(gocv.VideoCaptureFrameHeight))
	r := &captureReader{
		device: c.Device,
		cap:    cap,
		mat:    gocv.NewMat(),
	}
	return source.NewBoundedHandle(c.Device, r, c.ReadTimeout), nil
}

// captureReader is the blocking side of a capture handle. VideoCapture.Read
// cannot be interrupted, so it is wrapped by source.NewBoundedHandle.
type captureReader struct {
	device string
	cap    *gocv.VideoCapture
	mat    gocv.Mat
}

func (r *captureReader) Read() (source.Frame, error) {
	if ok := r.cap.Read(&r.mat); !ok || r.mat.Empty() {
		return source.Frame{}, fmt.Errorf("%w: read failure on %v", source.ErrCapture, r.device)
	}
	f, err := FrameFromMat(r.mat)
	if err != nil {
		return source.Frame{}, fmt.Errorf("%w: %v", source.ErrCapture, err)
	}
	f.Time = time.Now()
	return f, nil
}

func (r *captureReader) Release() {
	r.mat.Close()
	if err := r.cap.Close(); err != nil {
		log.WithField("device", r.device).Errorf("Error releasing capture device: %v", err)
	}
	log.WithField("device", r.device).Infof("Released capture device")
}

// FrameFromMat copies an 8 or 16-bit Mat into a Frame.
func FrameFromMat(m gocv.Mat) (source.Frame, error) {
	ch := m.Channels()
	if ch <= 0 {
		return source.Frame{}, fmt.Errorf("mat has no channels")
	}
	depth := 8 * m.ElemSize() / ch
	if depth != 8 && depth != 16 {
		return source.Frame{}, fmt.Errorf("unsupported mat depth %d", depth)
	}
	if !m.IsContinuous() {
		c := m.Clone()
		defer c.Close()
		m = c
	}
	return source.Frame{
		Width:    m.Cols(),
		Height:   m.Rows(),
		Depth:    depth,
		Channels: ch,
		Data:     m.ToBytes(),
	}, nil
}

// MatFromFrame wraps f.Data in a new Mat without copying; f must outlive
// the Mat. The caller must Close it.
func MatFromFrame(f source.Frame) (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.Mat{}, err
	}
	var t gocv.MatType
	switch {
	case f.Depth == 8 && f.Channels == 1:
		t = gocv.MatTypeCV8UC1
	case f.Depth == 8 && f.Channels == 3:
		t = gocv.MatTypeCV8UC3
	case f.Depth == 8 && f.Channels == 4:
		t = gocv.MatTypeCV8UC4
	case f.Depth == 16 && f.Channels == 1:
		t = gocv.MatTypeCV16UC1
	case f.Depth == 16 && f.Channels == 3:
		t = gocv.MatTypeCV16UC3
	case f.Depth == 16 && f.Channels == 4:
		t = gocv.MatTypeCV16UC4
	default:
		return gocv.Mat{}, fmt.Errorf("no mat type for %d channels at %d bits", f.Channels, f.Depth)
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, t, f.Data)
}
