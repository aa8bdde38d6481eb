package sink

import (
	"sync"

	"videorecord/video/source"
)

// Display is a live display surface. Put is called from the presentation
// goroutine for every processed frame and must not block for long. The frame
// is only valid for the duration of the call; implementations that keep it
// must copy it.
type Display interface {
	Put(input source.Frame)
}

// Displays fans a frame out to several displays in order.
type Displays []Display

func (d Displays) Put(input source.Frame) {
	for _, s := range d {
		s.Put(input)
	}
}

// Discard is a Display that drops every frame.
var Discard Display = discard{}

type discard struct{}

func (discard) Put(source.Frame) {}

// Latest keeps a private copy of the most recently displayed frame.
type Latest struct {
	frame source.Frame
	ok    bool
	l     sync.RWMutex
}

func (d *Latest) Put(input source.Frame) {
	c := input.Clone()
	d.l.Lock()
	defer d.l.Unlock()
	d.frame, d.ok = c, true
}

// Get returns the last frame displayed, if any.
func (d *Latest) Get() (source.Frame, bool) {
	d.l.RLock()
	defer d.l.RUnlock()
	return d.frame, d.ok
}

// JPEG encodes the last frame displayed. It returns nil if nothing was
// displayed yet.
func (d *Latest) JPEG() ([]byte, error) {
	f, ok := d.Get()
	if !ok {
		return nil, nil
	}
	return EncodeJPEG(f)
}
