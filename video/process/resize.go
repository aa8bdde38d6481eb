package process

import (
	"errors"
	"fmt"

	"videorecord/video/source"
)

// ErrEmptyFrame is returned when resizing a frame with no pixels.
var ErrEmptyFrame = errors.New("frame has zero width or height")

// ResizeFunc scales a frame to width x height with nearest-neighbor
// interpolation, keeping depth and channel count. cv.Resize is the OpenCV
// implementation.
type ResizeFunc func(input source.Frame, width, height int) (source.Frame, error)

// Resize scales input to width x height using nearest-neighbor
// interpolation. Depth and channel count are preserved. The returned frame
// never shares its buffer with input. It is used where OpenCV is not
// linked in.
func Resize(input source.Frame, width, height int) (source.Frame, error) {
	if input.Empty() {
		return source.Frame{}, ErrEmptyFrame
	}
	if width <= 0 || height <= 0 {
		return source.Frame{}, fmt.Errorf("invalid target geometry %dx%d", width, height)
	}
	if err := input.Validate(); err != nil {
		return source.Frame{}, err
	}

	out := input
	out.Width = width
	out.Height = height
	out.Data = make([]byte, out.Stride()*height)

	if input.Width == width && input.Height == height {
		copy(out.Data, input.Data)
		return out, nil
	}

	// Bytes per pixel; 16-bit channels are copied as opaque byte pairs.
	bpp := input.Channels * input.Depth / 8
	srcStride := input.Stride()
	dstStride := out.Stride()

	// Column lookup is shared by every row.
	cols := make([]int, width)
	for x := range cols {
		cols[x] = (x * input.Width / width) * bpp
	}

	for y := 0; y < height; y++ {
		sy := y * input.Height / height
		src := input.Data[sy*srcStride : (sy+1)*srcStride]
		dst := out.Data[y*dstStride : (y+1)*dstStride]
		for x, sx := range cols {
			copy(dst[x*bpp:(x+1)*bpp], src[sx:sx+bpp])
		}
	}
	return out, nil
}
