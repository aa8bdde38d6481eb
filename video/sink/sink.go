package sink

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"videorecord/video/source"
)

var (
	// ErrFileCreate is returned by Open when the output cannot be created.
	ErrFileCreate = errors.New("cannot create output file")

	// ErrEncode is returned by Write for frames that do not match the
	// recording format or that the encoder fails to write.
	ErrEncode = errors.New("encode error")

	// ErrSinkClosed is returned by Write after Close.
	ErrSinkClosed = errors.New("sink closed")
)

// Encoder serializes frames of a fixed geometry into a container file.
type Encoder interface {
	Encode(f source.Frame) error
	Close() error
}

// EncoderFunc creates an Encoder writing to path.
type EncoderFunc func(path string, fps, width, height int) (Encoder, error)

var (
	encodersLock sync.RWMutex
	encoders     = make(map[string]EncoderFunc)
)

// Register makes an encoder available to Open under the given format name.
func Register(format string, fn EncoderFunc) {
	encodersLock.Lock()
	defer encodersLock.Unlock()
	if _, ok := encoders[format]; ok {
		log.Panicf("Encoder for format %q already registered", format)
	}
	encoders[format] = fn
}

// Formats lists the registered format names.
func Formats() []string {
	encodersLock.RLock()
	defer encodersLock.RUnlock()
	var fs []string
	for k := range encoders {
		fs = append(fs, k)
	}
	sort.Strings(fs)
	return fs
}

// Registered reports whether an encoder exists for format.
func Registered(format string) bool {
	encodersLock.RLock()
	defer encodersLock.RUnlock()
	_, ok := encoders[format]
	return ok
}

// Recording is an open output file. It accepts frames of its configured
// geometry until closed.
type Recording struct {
	Path   string
	Format string
	FPS    int
	Width  int
	Height int

	enc    Encoder
	frames int
	closed bool

	// Pixel format is fixed by the first written frame.
	channels, depth int

	l sync.Mutex
}

// Open creates the output file at path, overwriting an existing one.
func Open(path, format string, fps, width, height int) (*Recording, error) {
	encodersLock.RLock()
	fn, ok := encoders[format]
	encodersLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown format %q (have %v)", ErrFileCreate, format, Formats())
	}
	if fps <= 0 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid geometry %dx%d@%d", ErrFileCreate, width, height, fps)
	}
	enc, err := fn(path, fps, width, height)
	if err != nil {
		if errors.Is(err, ErrFileCreate) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFileCreate, path, err)
	}
	log.Infof("Recording to %v (%v, %dx%d@%d)", path, format, width, height, fps)
	return &Recording{
		Path:   path,
		Format: format,
		FPS:    fps,
		Width:  width,
		Height: height,
		enc:    enc,
	}, nil
}

// Write appends f. Frames are checked before reaching the encoder so that a
// rejected frame leaves the file as it was.
func (r *Recording) Write(f source.Frame) error {
	r.l.Lock()
	defer r.l.Unlock()
	if r.closed {
		return ErrSinkClosed
	}
	if f.Width != r.Width || f.Height != r.Height {
		return fmt.Errorf("%w: frame is %dx%d, recording is %dx%d", ErrEncode, f.Width, f.Height, r.Width, r.Height)
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if r.frames > 0 && (f.Channels != r.channels || f.Depth != r.depth) {
		return fmt.Errorf("%w: frame has %d channels at %d bits, recording has %d at %d", ErrEncode, f.Channels, f.Depth, r.channels, r.depth)
	}
	if err := r.enc.Encode(f); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if r.frames == 0 {
		r.channels, r.depth = f.Channels, f.Depth
	}
	r.frames++
	return nil
}

// Close finalizes the file. Closing an already closed Recording does nothing.
func (r *Recording) Close() error {
	r.l.Lock()
	defer r.l.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.enc.Close()
	log.Infof("Recording %v finalized with %d frames", r.Path, r.frames)
	return err
}

func (r *Recording) IsOpen() bool {
	r.l.Lock()
	defer r.l.Unlock()
	return !r.closed
}

// Frames returns the number of frames written so far.
func (r *Recording) Frames() int {
	r.l.Lock()
	defer r.l.Unlock()
	return r.frames
}
