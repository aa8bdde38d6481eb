package notify

import (
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
)

type Kind string

const (
	// DeviceNotFound is raised when no camera could be opened.
	DeviceNotFound Kind = "device_not_found"
	// DeviceLost is raised when the camera fails mid-stream.
	DeviceLost Kind = "device_lost"
	// RecordingAborted is raised when the output file cannot be written.
	RecordingAborted Kind = "recording_aborted"
)

// MessageNoCamera is the user-facing text for device failures.
const MessageNoCamera = "No camera could be detected."

// Notice is a user-facing message, shown modally by the UI.
type Notice struct {
	Kind    Kind
	Message string
	Time    time.Time
	Err     string `json:",omitempty"`
}

// NotifyListener receives every Notice sent through a Notifier.
type NotifyListener interface {
	Notify(n *Notice) error
}

type Notifier struct {
	Listeners []NotifyListener

	l sync.Mutex
}

// Add registers a listener.
func (n *Notifier) Add(l NotifyListener) {
	n.l.Lock()
	defer n.l.Unlock()
	n.Listeners = append(n.Listeners, l)
}

// Notify delivers notice to every listener. Listener errors are logged, not
// returned.
func (n *Notifier) Notify(notice *Notice) {
	if notice.Time.IsZero() {
		notice.Time = time.Now()
	}
	n.l.Lock()
	ls := append([]NotifyListener(nil), n.Listeners...)
	n.l.Unlock()

	log.Warnf("Sending notice: %v", spew.Sdump(notice))
	for _, l := range ls {
		if err := l.Notify(notice); err != nil {
			log.Errorf("Failed to send notice: %v", err)
		}
	}
}
