package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"videorecord/util"
	"videorecord/video/source"
)

// Acquisition owns the capture device for one run: it pulls frames until
// cancelled or until the device fails, publishing every frame and then
// exactly one EventStopped or EventFault. The device is released before the
// final event is published.
type Acquisition struct {
	Source source.Source
	Out    Publisher
	ID     uint64

	done *util.Event
}

func NewAcquisition(src source.Source, out Publisher, id uint64) *Acquisition {
	return &Acquisition{
		Source: src,
		Out:    out,
		ID:     id,
		done:   util.NewEvent(),
	}
}

// Run blocks until ctx is cancelled or the device fails.
func (a *Acquisition) Run(ctx context.Context) {
	defer a.done.Notify()
	alog := log.WithField("run", a.ID)

	h, err := a.Source.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			a.Out.Publish(Event{Kind: EventStopped, Run: a.ID})
			return
		}
		if !errors.Is(err, source.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", source.ErrDeviceUnavailable, err)
		}
		alog.Errorf("Failed to open capture device: %v", err)
		a.Out.Publish(Event{Kind: EventFault, Run: a.ID, Err: err})
		return
	}
	alog.Info("Acquisition started")

	n, err := a.pump(ctx, h)
	h.Close()

	if ctx.Err() != nil {
		alog.Infof("Acquisition stopped after %d frames", n)
		a.Out.Publish(Event{Kind: EventStopped, Run: a.ID})
		return
	}
	if !errors.Is(err, source.ErrCapture) {
		err = fmt.Errorf("%w: %v", source.ErrCapture, err)
	}
	alog.Errorf("Acquisition failed after %d frames: %v", n, err)
	a.Out.Publish(Event{Kind: EventFault, Run: a.ID, Err: err})
}

func (a *Acquisition) pump(ctx context.Context, h source.Handle) (uint64, error) {
	var n uint64
	for {
		// Cancellation point; Next may also return early on ctx.
		if err := ctx.Err(); err != nil {
			return n, err
		}
		f, err := h.Next(ctx)
		if err != nil {
			return n, err
		}
		f.Seq = n
		n++
		framesCaptured.Inc()
		a.Out.Publish(Event{Kind: EventFrame, Run: a.ID, Frame: f})
	}
}

// Wait blocks until Run has returned.
func (a *Acquisition) Wait() {
	a.done.Wait()
}

// WaitTimeout waits at most d for Run to return.
func (a *Acquisition) WaitTimeout(d time.Duration) bool {
	return a.done.WaitTimeout(d)
}

// Done reports whether Run has returned.
func (a *Acquisition) Done() bool {
	return a.done.HasBeenNotified()
}
