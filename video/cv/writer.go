package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"videorecord/video/sink"
	"videorecord/video/source"
)

// FormatAVI is a motion-JPEG AVI written by OpenCV's VideoWriter.
const FormatAVI = "avi"

func init() {
	sink.Register(FormatAVI, NewVideoWriter)
}

// VideoWriter provides an Encoder that wraps opencv's VideoWriter with the
// MJPG codec.
type VideoWriter struct {
	writer *gocv.VideoWriter
}

func NewVideoWriter(path string, fps, width, height int) (sink.Encoder, error) {
	w, err := gocv.VideoWriterFile(path, "MJPG", float64(fps), width, height, true)
	if err != nil {
		return nil, err
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("%w: opencv could not open %v", sink.ErrFileCreate, path)
	}
	return &VideoWriter{
		writer: w,
	}, nil
}

func (v *VideoWriter) Encode(f source.Frame) error {
	if f.Channels != 3 || f.Depth != 8 {
		return fmt.Errorf("MJPG writer takes 8-bit BGR frames, got %d channels at %d bits", f.Channels, f.Depth)
	}
	m, err := MatFromFrame(f)
	if err != nil {
		return err
	}
	defer m.Close()
	return v.writer.Write(m)
}

func (v *VideoWriter) Close() error {
	return v.writer.Close()
}
