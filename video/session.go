package video

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"videorecord/config"
	"videorecord/video/sink"
	"videorecord/video/source"
)

// Session is one start-to-stop recording attempt bound to one output file.
type Session struct {
	ID       string
	Path     string
	OpenedAt time.Time

	// FromSeq is the first dispatcher sequence number produced after the
	// session opened. Earlier frames are never written to it.
	FromSeq uint64

	rec *sink.Recording
	log *log.Entry
}

// OpenSession creates (or overwrites) the output file for a new session.
func OpenSession(cfg config.Config, fromSeq uint64) (*Session, error) {
	if err := prepareOutput(cfg.OutputPath); err != nil {
		return nil, fmt.Errorf("%w: %v", sink.ErrFileCreate, err)
	}
	rec, err := sink.Open(cfg.OutputPath, cfg.Format, cfg.FPS, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:       uuid.NewString(),
		Path:     cfg.OutputPath,
		OpenedAt: time.Now(),
		FromSeq:  fromSeq,
		rec:      rec,
	}
	s.log = log.WithField("session", s.ID)
	s.log.Infof("Session opened, recording to %v", s.Path)
	return s, nil
}

// Accepts reports whether the frame carried by ev was produced while the
// session was open.
func (s *Session) Accepts(ev Event) bool {
	return ev.Seq >= s.FromSeq
}

func (s *Session) Write(f source.Frame) error {
	return s.rec.Write(f)
}

func (s *Session) Frames() int {
	return s.rec.Frames()
}

func (s *Session) IsOpen() bool {
	return s.rec.IsOpen()
}

// Close finalizes the output file. It is safe to call more than once.
func (s *Session) Close(reason string) {
	if !s.rec.IsOpen() {
		return
	}
	if err := s.rec.Close(); err != nil {
		s.log.Errorf("Error finalizing %v: %v", s.Path, err)
	}
	s.log.WithField("reason", reason).Infof("Session closed after %v with %d frames",
		time.Since(s.OpenedAt).Round(time.Millisecond), s.rec.Frames())
}
