package serve

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"videorecord/video"
	"videorecord/video/sink"
)

// Controls is the part of the recorder driven by the UI buttons.
type Controls interface {
	Start() error
	Stop()
	Status() video.Status
}

// ControlServer exposes start, stop and status over HTTP.
type ControlServer struct {
	Controls Controls
}

func (s *ControlServer) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/status", s.handleStatus)
}

func (s *ControlServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	if err := s.Controls.Start(); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, video.ErrClosed) {
			code = http.StatusServiceUnavailable
		} else if errors.Is(err, sink.ErrFileCreate) {
			code = http.StatusConflict
		}
		log.WithField("addr", r.RemoteAddr).Errorf("Start failed: %v", err)
		http.Error(w, err.Error(), code)
		return
	}
	s.writeStatus(w)
}

func (s *ControlServer) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	s.Controls.Stop()
	s.writeStatus(w)
}

func (s *ControlServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w)
}

func (s *ControlServer) writeStatus(w http.ResponseWriter) {
	js, err := json.Marshal(s.Controls.Status())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}
