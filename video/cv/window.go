package cv

import (
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"videorecord/video/source"
)

// Window is a Display showing frames in an OpenCV highgui window.
type Window struct {
	window  *gocv.Window
	sizeSet bool
}

func NewWindow(name string) *Window {
	return &Window{
		window: gocv.NewWindow(name),
	}
}

func (w *Window) Put(input source.Frame) {
	m, err := MatFromFrame(input)
	if err != nil {
		log.Errorf("Cannot display %v: %v", input, err)
		return
	}
	defer m.Close()

	if !w.sizeSet {
		w.window.ResizeWindow(m.Cols(), m.Rows())
		w.sizeSet = true
	}
	w.window.IMShow(m)
	w.window.WaitKey(1)
}

func (w *Window) Close() {
	w.window.Close()
}
