package serve

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"videorecord/notify"
	"videorecord/video"
)

const (
	// Time allowed to write message to the client
	writeWait  = 10 * time.Second
	pingPeriod = 10 * time.Second

	// Messages buffered per client before it is considered too slow.
	clientBuffer = 16
)

// Message is pushed to every websocket client. Clients send
// {"Type":"ack"} once a notice has been shown.
type Message struct {
	Type   string         // "status", "notice" or "ack"
	Status *video.Status  `json:",omitempty"`
	Notice *notify.Notice `json:",omitempty"`
}

// StatusUpdater pushes recorder status changes and notices to the UI over
// websockets. It implements video.StatusListener and notify.NotifyListener.
type StatusUpdater struct {
	upgrader websocket.Upgrader
	cs       map[chan []byte]bool
	addc     chan chan []byte
	delc     chan chan []byte
	msgc     chan []byte
	ackc     chan struct{}

	// Replayed to new clients. notice is kept until acknowledged.
	last   []byte
	notice []byte
}

func NewStatusUpdater() *StatusUpdater {
	m := &StatusUpdater{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cs:   make(map[chan []byte]bool),
		addc: make(chan chan []byte),
		delc: make(chan chan []byte),
		msgc: make(chan []byte, 64),
		ackc: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case c := <-m.addc:
				m.cs[c] = true
				if m.notice != nil {
					c <- m.notice
				}
				if m.last != nil {
					c <- m.last
				}
			case c := <-m.delc:
				delete(m.cs, c)
			case <-m.ackc:
				m.notice = nil
			case b := <-m.msgc:
				switch messageType(b) {
				case "status":
					m.last = b
				case "notice":
					m.notice = b
				}
				for c := range m.cs {
					select {
					case c <- b:
					default:
						log.Warnf("Dropping update for slow websocket client")
					}
				}
			}
		}
	}()
	return m
}

func messageType(b []byte) string {
	var m struct{ Type string }
	if err := json.Unmarshal(b, &m); err != nil {
		return ""
	}
	return m.Type
}

func (m *StatusUpdater) send(msg *Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to encode %v message: %v", msg.Type, err)
		return
	}
	m.msgc <- b
}

func (m *StatusUpdater) StatusChanged(s video.Status) {
	m.send(&Message{Type: "status", Status: &s})
}

func (m *StatusUpdater) Notify(n *notify.Notice) error {
	m.send(&Message{Type: "notice", Notice: n})
	return nil
}

func (m *StatusUpdater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.WithField("addr", r.RemoteAddr).Errorf("Websocket handshake failed for update stream: %v", err)
		}
		return
	}
	go m.serve(ws)
}

func (m *StatusUpdater) serve(ws *websocket.Conn) {
	clog := log.WithField("addr", ws.RemoteAddr())
	clog.Info("connected to status update socket")
	defer func() {
		ws.Close()
		clog.Info("disconnected from status update socket")
	}()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	msgs := make(chan []byte, clientBuffer)
	m.addc <- msgs
	defer func() { m.delc <- msgs }()

	// Reading also processes control messages.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, b, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if messageType(b) == "ack" {
				clog.Debug("Notice acknowledged")
				m.ackc <- struct{}{}
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case b := <-msgs:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-pingTicker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
