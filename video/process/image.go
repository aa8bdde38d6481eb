package process

import (
	"fmt"
	"image"

	"videorecord/video/source"
)

// ToImage converts an 8-bit gray, BGR or BGRA frame into a Go image. The
// result does not share memory with f.
func ToImage(f source.Frame) (image.Image, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Depth != 8 {
		return nil, fmt.Errorf("cannot convert %d-bit frame to image", f.Depth)
	}
	r := image.Rect(0, 0, f.Width, f.Height)
	switch f.Channels {
	case 1:
		g := image.NewGray(r)
		copy(g.Pix, f.Data)
		return g, nil
	case 3, 4:
		img := image.NewRGBA(r)
		n := f.Width * f.Height
		for i := 0; i < n; i++ {
			s := f.Data[i*f.Channels:]
			d := img.Pix[i*4:]
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 255
			if f.Channels == 4 {
				d[3] = s[3]
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("cannot convert %d-channel frame to image", f.Channels)
}

// fromRGBA writes img back into a copy of like, keeping its channel layout.
func fromRGBA(img *image.RGBA, like source.Frame) source.Frame {
	out := like
	out.Data = make([]byte, len(like.Data))
	n := like.Width * like.Height
	for i := 0; i < n; i++ {
		s := img.Pix[i*4:]
		d := out.Data[i*like.Channels:]
		d[0], d[1], d[2] = s[2], s[1], s[0]
		if like.Channels == 4 {
			d[3] = s[3]
		}
	}
	return out
}
