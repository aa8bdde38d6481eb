package sink

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strconv"

	"videorecord/video/source"
)

// FormatMJPEG is a multipart/x-mixed-replace motion-JPEG file, the same
// framing served by MJPEGServer.
const FormatMJPEG = "mjpeg"

func init() {
	Register(FormatMJPEG, NewMJPEGFile)
}

// MJPEGFile writes each frame as one JPEG part of a multipart stream.
type MJPEGFile struct {
	f   *os.File
	buf *bufio.Writer
	mw  *multipart.Writer

	fps int
	n   int
}

func NewMJPEGFile(path string, fps, width, height int) (Encoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	mw := multipart.NewWriter(buf)
	if err := mw.SetBoundary(boundaryWord); err != nil {
		f.Close()
		return nil, err
	}
	return &MJPEGFile{f: f, buf: buf, mw: mw, fps: fps}, nil
}

func (m *MJPEGFile) Encode(f source.Frame) error {
	// Encode fully before starting the part so a failure leaves no partial
	// part behind.
	jpg, err := EncodeJPEG(f)
	if err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(jpg)))
	h.Set("X-Frame-Seq", strconv.FormatUint(f.Seq, 10))
	// Nominal presentation time at the fixed rate.
	h.Set("X-Timestamp", fmt.Sprintf("%.6f", float64(m.n)/float64(m.fps)))
	w, err := m.mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := w.Write(jpg); err != nil {
		return err
	}
	m.n++
	return nil
}

func (m *MJPEGFile) Close() error {
	err := m.mw.Close()
	if ferr := m.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadMJPEGFile decodes every frame of a file written by MJPEGFile.
func ReadMJPEGFile(path string) ([]image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var imgs []image.Image
	mr := multipart.NewReader(bufio.NewReader(f), boundaryWord)
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return imgs, nil
		}
		if err != nil {
			return imgs, err
		}
		img, err := jpeg.Decode(p)
		if err != nil {
			return imgs, fmt.Errorf("part %d: %w", len(imgs), err)
		}
		imgs = append(imgs, img)
	}
}
