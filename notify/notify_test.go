package notify

import (
	"errors"
	"testing"
)

type recordListener struct {
	got []*Notice
	err error
}

func (r *recordListener) Notify(n *Notice) error {
	r.got = append(r.got, n)
	return r.err
}

func TestNotifierFanOut(t *testing.T) {
	a := &recordListener{}
	b := &recordListener{err: errors.New("listener down")}
	n := &Notifier{}
	n.Add(a)
	n.Add(b)

	n.Notify(&Notice{Kind: DeviceLost, Message: MessageNoCamera})

	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("expected one notice per listener, got %d and %d", len(a.got), len(b.got))
	}
	if a.got[0].Time.IsZero() {
		t.Fatal("notice time was not stamped")
	}
	if a.got[0].Kind != DeviceLost {
		t.Fatalf("unexpected kind %v", a.got[0].Kind)
	}
}
