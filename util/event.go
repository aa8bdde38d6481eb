package util

import (
	"sync"
	"time"
)

// Event is a one-shot signal. Once notified it stays notified.
type Event struct {
	once sync.Once
	c    chan struct{}
}

func NewEvent() *Event {
	return &Event{
		c: make(chan struct{}),
	}
}

func (e *Event) Notify() {
	e.once.Do(func() { close(e.c) })
}

// Done is closed once the event is notified.
func (e *Event) Done() <-chan struct{} {
	return e.c
}

func (e *Event) Wait() {
	<-e.c
}

// WaitTimeout waits at most d and reports whether the event was notified.
func (e *Event) WaitTimeout(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-e.c:
		return true
	case <-t.C:
		return false
	}
}

func (e *Event) HasBeenNotified() bool {
	select {
	case <-e.c:
		return true
	default:
		return false
	}
}
