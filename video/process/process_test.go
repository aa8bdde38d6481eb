package process

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"videorecord/video/source"
)

func TestResizeIdentity(t *testing.T) {
	f := source.Pattern(430, 350, 7)
	out, err := Resize(f, 430, 350)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if !bytes.Equal(out.Data, f.Data) {
		t.Fatal("identity resize changed frame content")
	}
	out.Data[0]++
	if out.Data[0] == f.Data[0] {
		t.Fatal("identity resize shares the input buffer")
	}
}

func TestResizeGeometry(t *testing.T) {
	f := source.Pattern(640, 480, 0)
	out, err := Resize(f, 430, 350)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if out.Width != 430 || out.Height != 350 {
		t.Fatalf("expected 430x350, got %dx%d", out.Width, out.Height)
	}
	if out.Channels != f.Channels || out.Depth != f.Depth {
		t.Fatalf("resize changed format: %v", out)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("resized frame invalid: %v", err)
	}
}

func TestResizeNearestNeighbor(t *testing.T) {
	// 2x2 single-channel source upscaled to 4x4: each pixel becomes a 2x2 block.
	f := source.Frame{Width: 2, Height: 2, Depth: 8, Channels: 1, Data: []byte{1, 2, 3, 4}}
	out, err := Resize(f, 4, 4)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	want := []byte{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	if !bytes.Equal(out.Data, want) {
		t.Fatalf("got %v, want %v", out.Data, want)
	}

	down, err := Resize(out, 2, 2)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if !bytes.Equal(down.Data, f.Data) {
		t.Fatalf("downscale got %v, want %v", down.Data, f.Data)
	}
}

func TestResizePreserves16Bit(t *testing.T) {
	f := source.Frame{Width: 2, Height: 1, Depth: 16, Channels: 1, Data: []byte{0x01, 0x02, 0x03, 0x04}}
	out, err := Resize(f, 4, 1)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	want := []byte{0x01, 0x02, 0x01, 0x02, 0x03, 0x04, 0x03, 0x04}
	if out.Depth != 16 || !bytes.Equal(out.Data, want) {
		t.Fatalf("got depth %d data %v, want %v", out.Depth, out.Data, want)
	}
}

func TestResizeEmpty(t *testing.T) {
	_, err := Resize(source.Frame{Depth: 8, Channels: 3}, 430, 350)
	if !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestToImageBGR(t *testing.T) {
	f := source.Frame{Width: 1, Height: 1, Depth: 8, Channels: 3, Data: []byte{10, 20, 30}}
	img, err := ToImage(f)
	if err != nil {
		t.Fatalf("to image: %v", err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		t.Fatalf("expected *image.RGBA, got %T", img)
	}
	if got := rgba.Pix[:4]; !bytes.Equal(got, []byte{30, 20, 10, 255}) {
		t.Fatalf("unexpected pixel %v", got)
	}
}

func TestToImageRejects16Bit(t *testing.T) {
	f := source.Frame{Width: 1, Height: 1, Depth: 16, Channels: 1, Data: []byte{0, 0}}
	if _, err := ToImage(f); err == nil {
		t.Fatal("expected 16-bit frame to be rejected")
	}
}

func TestDrawLabelCopies(t *testing.T) {
	f := source.Frame{Width: 64, Height: 32, Depth: 8, Channels: 3, Data: make([]byte, 64*32*3)}
	out := DrawLabel(f, "REC")
	if bytes.Equal(out.Data, f.Data) {
		t.Fatal("label was not drawn")
	}
	for _, b := range f.Data {
		if b != 0 {
			t.Fatal("DrawLabel modified its input")
		}
	}
	if out.Width != f.Width || out.Height != f.Height || out.Channels != f.Channels {
		t.Fatalf("label changed geometry: %v", out)
	}
}

func TestDrawLabelSkipsGray(t *testing.T) {
	f := source.Frame{Width: 4, Height: 4, Depth: 8, Channels: 1, Data: make([]byte, 16)}
	out := DrawLabel(f, "REC")
	if !bytes.Equal(out.Data, f.Data) {
		t.Fatal("gray frame should be returned unchanged")
	}
}
