package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// stuckReader blocks every Read until unblock is closed.
type stuckReader struct {
	unblock chan struct{}

	mu       sync.Mutex
	reads    int
	releases int
	// readAfterRelease is set if Read ever ran on a released device.
	readAfterRelease bool
}

func newStuckReader() *stuckReader {
	return &stuckReader{unblock: make(chan struct{})}
}

func (r *stuckReader) Read() (Frame, error) {
	r.mu.Lock()
	r.reads++
	if r.releases > 0 {
		r.readAfterRelease = true
	}
	r.mu.Unlock()
	<-r.unblock
	return Pattern(4, 4, 0), nil
}

func (r *stuckReader) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases++
}

func (r *stuckReader) counts() (int, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads, r.releases, r.readAfterRelease
}

func TestBoundedHandleTimeout(t *testing.T) {
	r := newStuckReader()
	h := NewBoundedHandle("stuck", r, 20*time.Millisecond)

	start := time.Now()
	_, err := h.Next(context.Background())
	if !errors.Is(err, ErrCapture) {
		t.Fatalf("expected capture error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("Next did not honor its timeout")
	}

	// A second Next must pick up the same read rather than start another.
	if _, err := h.Next(context.Background()); !errors.Is(err, ErrCapture) {
		t.Fatalf("expected capture error, got %v", err)
	}
	if reads, _, _ := r.counts(); reads != 1 {
		t.Fatalf("expected one read in flight, got %d", reads)
	}
}

func TestBoundedHandleCloseDuringStuckRead(t *testing.T) {
	r := newStuckReader()
	h := NewBoundedHandle("stuck", r, 20*time.Millisecond)
	if _, err := h.Next(context.Background()); !errors.Is(err, ErrCapture) {
		t.Fatalf("expected capture error, got %v", err)
	}

	closed := make(chan struct{})
	go func() {
		h.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a stuck read")
	}
	if _, releases, _ := r.counts(); releases != 0 {
		t.Fatal("device released under a running read")
	}

	close(r.unblock)
	deadline := time.Now().Add(5 * time.Second)
	for {
		reads, releases, after := r.counts()
		if releases == 1 {
			if reads != 1 || after {
				t.Fatalf("device read after release: reads %d", reads)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("device never released")
		}
		time.Sleep(time.Millisecond)
	}

	h.Close()
	if _, releases, _ := r.counts(); releases != 1 {
		t.Fatalf("device released %d times", releases)
	}
}

func TestBoundedHandleFrames(t *testing.T) {
	r := newStuckReader()
	close(r.unblock)
	h := NewBoundedHandle("ok", r, time.Second)
	for i := 0; i < 3; i++ {
		f, err := h.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if f.Width != 4 || f.Height != 4 {
			t.Fatalf("unexpected frame %v", f)
		}
	}
	h.Close()
	h.Close()
	if reads, releases, _ := r.counts(); reads != 3 || releases != 1 {
		t.Fatalf("expected 3 reads and 1 release, got %d and %d", reads, releases)
	}
}

func TestBoundedHandleNextAfterClosePanics(t *testing.T) {
	r := newStuckReader()
	h := NewBoundedHandle("closed", r, time.Second)
	h.Close()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	h.Next(context.Background())
}
