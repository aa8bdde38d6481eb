package video

import (
	"sync"

	"videorecord/video/source"
)

type EventKind int

const (
	// EventFrame carries one captured frame.
	EventFrame EventKind = iota
	// EventFault reports that acquisition failed and released the device.
	EventFault
	// EventStopped reports that acquisition was cancelled and released the
	// device.
	EventStopped
)

func (k EventKind) String() string {
	switch k {
	case EventFrame:
		return "frame"
	case EventFault:
		return "fault"
	case EventStopped:
		return "stopped"
	}
	return "unknown"
}

// Event is one hand-off from the acquisition loop to the presentation
// goroutine.
type Event struct {
	Kind EventKind
	// Run identifies the acquisition run that produced the event.
	Run   uint64
	Frame source.Frame
	Err   error

	// Seq is assigned by the Dispatcher in publication order.
	Seq uint64
}

// Publisher accepts events from the acquisition loop.
type Publisher interface {
	Publish(ev Event)
}

// Dispatcher is an unbounded FIFO between one producer and one consumer.
// Publish never blocks; nothing is coalesced or dropped.
type Dispatcher struct {
	queue []Event
	seq   uint64
	l     sync.Mutex

	// ready holds a token whenever the queue may be non-empty.
	ready chan struct{}
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		ready: make(chan struct{}, 1),
	}
}

func (d *Dispatcher) signal() {
	select {
	case d.ready <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) Publish(ev Event) {
	d.l.Lock()
	ev.Seq = d.seq
	d.seq++
	d.queue = append(d.queue, ev)
	queueDepth.Set(float64(len(d.queue)))
	d.l.Unlock()
	d.signal()
}

// Ready is signalled when events are waiting. After receiving from it the
// consumer should call Pop.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.ready
}

// Pop removes the oldest event.
func (d *Dispatcher) Pop() (Event, bool) {
	d.l.Lock()
	defer d.l.Unlock()
	if len(d.queue) == 0 {
		return Event{}, false
	}
	ev := d.queue[0]
	d.queue[0] = Event{}
	d.queue = d.queue[1:]
	if len(d.queue) == 0 {
		d.queue = nil
	} else {
		d.signal()
	}
	queueDepth.Set(float64(len(d.queue)))
	return ev, true
}

// Published returns the sequence number the next published event will get.
func (d *Dispatcher) Published() uint64 {
	d.l.Lock()
	defer d.l.Unlock()
	return d.seq
}

func (d *Dispatcher) Len() int {
	d.l.Lock()
	defer d.l.Unlock()
	return len(d.queue)
}
