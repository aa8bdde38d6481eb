package sink

import (
	"bytes"
	"image/jpeg"
	"sync"

	"videorecord/video/process"
	"videorecord/video/source"
)

// JPEGQuality is used for every JPEG produced by this package.
const JPEGQuality = 90

// JPEGEncoder compresses one frame. It must not keep the frame.
type JPEGEncoder func(f source.Frame) ([]byte, error)

var (
	jpegLock    sync.RWMutex
	jpegEncoder JPEGEncoder = encodeImageJPEG
)

// SetJPEGEncoder replaces the encoder used by the mjpeg format, the live
// streams and Latest. Builds with OpenCV install cv.EncodeJPEG.
func SetJPEGEncoder(fn JPEGEncoder) {
	jpegLock.Lock()
	defer jpegLock.Unlock()
	jpegEncoder = fn
}

// EncodeJPEG encodes f with the installed encoder.
func EncodeJPEG(f source.Frame) ([]byte, error) {
	jpegLock.RLock()
	fn := jpegEncoder
	jpegLock.RUnlock()
	return fn(f)
}

// encodeImageJPEG is the encoder for builds without OpenCV.
func encodeImageJPEG(f source.Frame) ([]byte, error) {
	img, err := process.ToImage(f)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := jpeg.Encode(&b, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
