package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"videorecord/video/process"
	"videorecord/video/sink"
	"videorecord/video/source"
)

// Resize is a process.ResizeFunc backed by gocv.Resize with nearest-neighbor
// interpolation.
func Resize(input source.Frame, width, height int) (source.Frame, error) {
	if input.Empty() {
		return source.Frame{}, process.ErrEmptyFrame
	}
	if width <= 0 || height <= 0 {
		return source.Frame{}, fmt.Errorf("invalid target geometry %dx%d", width, height)
	}
	src, err := MatFromFrame(input)
	if err != nil {
		return source.Frame{}, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationNearestNeighbor)

	out, err := FrameFromMat(dst)
	if err != nil {
		return source.Frame{}, err
	}
	out.Seq = input.Seq
	out.Time = input.Time
	return out, nil
}

// EncodeJPEG is a sink.JPEGEncoder backed by gocv.IMEncode.
func EncodeJPEG(f source.Frame) ([]byte, error) {
	m, err := MatFromFrame(f)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{gocv.IMWriteJpegQuality, sink.JPEGQuality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	// The native buffer is freed on return.
	return append([]byte(nil), buf.GetBytes()...), nil
}
