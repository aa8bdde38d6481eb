package video

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"videorecord/config"
	"videorecord/notify"
	"videorecord/video/process"
	"videorecord/video/sink"
	"videorecord/video/source"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("recorder closed")

// WorkerState is the state of the acquisition loop as seen by the Recorder.
type WorkerState int

const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerCancelRequested
	WorkerFaulted
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerCancelRequested:
		return "cancel_requested"
	case WorkerFaulted:
		return "faulted"
	}
	return "unknown"
}

func (s WorkerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// canStart is true for states from which a new acquisition run may begin.
func (s WorkerState) canStart() bool {
	return s == WorkerIdle || s == WorkerFaulted
}

// Status is a snapshot of the recorder for the UI. Start is meaningful iff
// !Recording and Stop iff Recording.
type Status struct {
	Recording     bool
	Worker        WorkerState
	SessionID     string `json:",omitempty"`
	OutputPath    string
	FramesWritten int
	LastFault     string `json:",omitempty"`
}

// StatusListener is told about every status change, from the presentation
// goroutine. It must not block or call back into the Recorder.
type StatusListener interface {
	StatusChanged(s Status)
}

// Noticer raises user-facing notices.
type Noticer interface {
	Notify(n *notify.Notice)
}

type RecorderOptions struct {
	Config   config.Config
	Source   source.Source
	Display  sink.Display
	Notifier Noticer
	Listener StatusListener
	// Resize defaults to process.Resize.
	Resize process.ResizeFunc
}

// Recorder is the session controller. All recording state is owned by a
// single presentation goroutine which also consumes the dispatcher, so frame
// handling, sink writes and start/stop requests are serialized.
type Recorder struct {
	cfg      config.Config
	src      source.Source
	display  sink.Display
	notices  Noticer
	listener StatusListener
	resize   process.ResizeFunc
	queue    *Dispatcher

	start  chan chan error
	stop   chan chan bool
	status chan chan Status
	close  chan chan bool
	done   chan struct{}

	closeOnce sync.Once

	// Owned by the presentation goroutine.
	session   *Session
	worker    WorkerState
	run       uint64
	acq       *Acquisition
	cancel    context.CancelFunc
	restart   bool
	lastFault error
	written   int
}

func NewRecorder(o RecorderOptions) (*Recorder, error) {
	if err := o.Config.Validate(); err != nil {
		return nil, err
	}
	if o.Source == nil {
		return nil, errors.New("recorder requires a source")
	}
	r := &Recorder{
		cfg:      o.Config,
		src:      o.Source,
		display:  o.Display,
		notices:  o.Notifier,
		listener: o.Listener,
		resize:   o.Resize,
		queue:    NewDispatcher(),

		start:  make(chan chan error),
		stop:   make(chan chan bool),
		status: make(chan chan Status),
		close:  make(chan chan bool),
		done:   make(chan struct{}),
	}
	if r.display == nil {
		r.display = sink.Discard
	}
	if r.resize == nil {
		r.resize = process.Resize
	}
	go r.loop()
	return r, nil
}

func (r *Recorder) loop() {
	defer close(r.done)
	for {
		select {
		case c := <-r.start:
			c <- r.doStart()
		case c := <-r.stop:
			r.doStop()
			c <- true
		case c := <-r.status:
			c <- r.snapshot()
		case <-r.queue.Ready():
			if ev, ok := r.queue.Pop(); ok {
				r.handle(ev)
			}
		case c := <-r.close:
			r.shutdown()
			c <- true
			return
		}
	}
}

// Start opens a new recording session and starts acquisition if it is not
// already running. It does nothing if a session is already open.
func (r *Recorder) Start() error {
	c := make(chan error, 1)
	select {
	case r.start <- c:
		return <-c
	case <-r.done:
		return ErrClosed
	}
}

// Stop finalizes the current session, if any. When it returns no further
// frame will be written to that session.
func (r *Recorder) Stop() {
	c := make(chan bool, 1)
	select {
	case r.stop <- c:
		<-c
	case <-r.done:
	}
}

func (r *Recorder) Status() Status {
	c := make(chan Status, 1)
	select {
	case r.status <- c:
		return <-c
	case <-r.done:
		return Status{OutputPath: r.cfg.OutputPath}
	}
}

// Close stops acquisition, waits for the device to be released and
// finalizes any open session.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		c := make(chan bool, 1)
		r.close <- c
		<-c
	})
}

func (r *Recorder) doStart() error {
	if r.session != nil {
		log.WithField("session", r.session.ID).Debug("Start ignored, already recording")
		return nil
	}
	s, err := OpenSession(r.cfg, r.queue.Published())
	if err != nil {
		log.Errorf("Failed to open recording: %v", err)
		return err
	}
	r.session = s
	r.written = 0
	sessionsOpened.Inc()

	switch {
	case r.worker.canStart():
		r.startAcquisition()
	case r.worker == WorkerCancelRequested:
		// The previous run still holds the device.
		r.restart = true
	}
	r.notifyStatus()
	return nil
}

func (r *Recorder) doStop() {
	if r.session == nil {
		return
	}
	r.closeSession("stopped")
	if r.cfg.StopHaltsCapture {
		r.cancelAcquisition()
	}
	r.notifyStatus()
}

func (r *Recorder) startAcquisition() {
	r.run++
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.acq = NewAcquisition(r.src, r.queue, r.run)
	r.worker = WorkerRunning
	go r.acq.Run(ctx)
}

func (r *Recorder) cancelAcquisition() {
	r.restart = false
	if r.worker != WorkerRunning {
		return
	}
	r.cancel()
	r.worker = WorkerCancelRequested
}

func (r *Recorder) closeSession(reason string) {
	r.session.Close(reason)
	r.session = nil
}

func (r *Recorder) handle(ev Event) {
	switch ev.Kind {
	case EventFrame:
		r.onFrame(ev)
	case EventFault:
		r.onError(ev.Err)
	case EventStopped:
		r.onStopped()
	}
}

func (r *Recorder) onFrame(ev Event) {
	resized, err := r.resize(ev.Frame, r.cfg.Width, r.cfg.Height)
	if err != nil {
		framesDropped.WithLabelValues("resize").Inc()
		log.Warnf("Dropping %v: %v", ev.Frame, err)
		return
	}

	if r.session != nil && r.session.Accepts(ev) {
		switch err := r.session.Write(resized); {
		case err == nil:
			r.written++
			framesWritten.Inc()
		case errors.Is(err, sink.ErrSinkClosed):
			framesDropped.WithLabelValues("sink_closed").Inc()
		default:
			framesDropped.WithLabelValues("encode").Inc()
			r.abort(err)
		}
	}

	display := resized
	if r.cfg.Overlay && r.session != nil {
		display = process.DrawTimestamp("REC", resized)
	}
	r.display.Put(display)
}

// abort ends a session whose file can no longer be written.
func (r *Recorder) abort(err error) {
	log.WithField("session", r.session.ID).Errorf("Aborting recording: %v", err)
	r.closeSession("encode error")
	if r.cfg.StopHaltsCapture {
		r.cancelAcquisition()
	}
	r.raise(&notify.Notice{
		Kind:    notify.RecordingAborted,
		Message: "Recording stopped: the video file could not be written.",
		Err:     err.Error(),
	})
	r.notifyStatus()
}

func (r *Recorder) onError(err error) {
	r.release()
	r.worker = WorkerFaulted
	r.restart = false
	r.lastFault = err

	kind := notify.DeviceLost
	if errors.Is(err, source.ErrDeviceUnavailable) {
		kind = notify.DeviceNotFound
	}
	captureFaults.WithLabelValues(string(kind)).Inc()

	if r.session != nil {
		r.closeSession("capture fault")
	}
	r.raise(&notify.Notice{
		Kind:    kind,
		Message: notify.MessageNoCamera,
		Err:     err.Error(),
	})
	r.notifyStatus()
}

func (r *Recorder) onStopped() {
	r.release()
	r.worker = WorkerIdle
	if r.restart && r.session != nil {
		r.restart = false
		r.startAcquisition()
	}
	r.notifyStatus()
}

// release drops the finished run's context.
func (r *Recorder) release() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.acq = nil
}

func (r *Recorder) shutdown() {
	r.restart = false
	if r.session != nil {
		r.closeSession("shutdown")
	}
	if r.acq != nil {
		r.cancel()
		if !r.acq.WaitTimeout(r.cfg.ReadTimeout) {
			log.Warnf("Waiting for capture device to be released")
			r.acq.Wait()
		}
		r.release()
	}
	r.worker = WorkerIdle
	// Anything still queued was produced by a run that has now exited.
	for {
		if _, ok := r.queue.Pop(); !ok {
			break
		}
	}
	log.Info("Recorder closed")
}

func (r *Recorder) raise(n *notify.Notice) {
	if r.notices != nil {
		r.notices.Notify(n)
	}
}

func (r *Recorder) snapshot() Status {
	s := Status{
		Recording:     r.session != nil,
		Worker:        r.worker,
		OutputPath:    r.cfg.OutputPath,
		FramesWritten: r.written,
	}
	if r.session != nil {
		s.SessionID = r.session.ID
	}
	if r.lastFault != nil {
		s.LastFault = r.lastFault.Error()
	}
	return s
}

func (r *Recorder) notifyStatus() {
	if r.listener != nil {
		r.listener.StatusChanged(r.snapshot())
	}
}
