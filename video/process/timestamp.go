package process

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"videorecord/video/source"
)

var (
	colorTime = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorBG   = color.RGBA{R: 200, G: 0, B: 0, A: 255}
)

// DrawTimestamp returns a copy of f with "name - <capture time>" drawn in the
// top-left corner. Frames that cannot be drawn on (gray, 16-bit) are returned
// unchanged.
func DrawTimestamp(name string, f source.Frame) source.Frame {
	text := name
	if !f.Time.IsZero() {
		text += " - " + f.Time.Format("2006-01-02 15:04:05 MST")
	}
	return DrawLabel(f, text)
}

// DrawLabel returns a copy of f with text drawn on a filled box in the
// top-left corner.
func DrawLabel(f source.Frame, text string) source.Frame {
	if f.Channels != 3 && f.Channels != 4 {
		return f
	}
	img, err := ToImage(f)
	if err != nil {
		return f
	}
	rgba := img.(*image.RGBA)

	face := basicfont.Face7x13
	m := face.Metrics()
	pad := 2

	sz := image.Point{X: font.MeasureString(face, text).Ceil(), Y: m.Height.Ceil()}
	box := image.Rectangle{Max: image.Point{X: sz.X + pad*2, Y: sz.Y + pad*2}}
	draw.Draw(rgba, box, image.NewUniform(colorBG), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(colorTime),
		Face: face,
		Dot:  fixed.P(pad, pad+m.Ascent.Ceil()),
	}
	d.DrawString(text)

	return fromRGBA(rgba, f)
}
