package sink

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"videorecord/video/source"
)

// MJPEG multi-streaming, based on implementation by saljam:
// https://github.com/saljam/mjpeg/blob/master/stream.go

const boundaryWord = "MJPEGBOUNDARY"

// MJPEGContentType is the content type of both the live streams and the
// mjpeg recording format.
const MJPEGContentType = "multipart/x-mixed-replace;boundary=" + boundaryWord

func partHeader(size int, ts time.Duration) string {
	return fmt.Sprintf("\r\n--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\nX-Timestamp: %.6f\r\n\r\n",
		boundaryWord, size, ts.Seconds())
}

type MJPEGID struct {
	Name string
}

// MJPEGServer serves named live display streams over HTTP.
type MJPEGServer struct {
	streams map[MJPEGID]*MJPEGStream

	lock sync.Mutex
}

func NewMJPEGServer() *MJPEGServer {
	return &MJPEGServer{
		streams: make(map[MJPEGID]*MJPEGStream),
	}
}

// NewStream registers a stream. Creating two streams with the same id panics.
func (s *MJPEGServer) NewStream(id MJPEGID) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.streams[id]; ok {
		log.Panicf("A stream for %v already exists", id)
	}
	ms := &MJPEGStream{
		id:        id,
		listeners: make(map[chan []byte]struct{}),
		started:   time.Now(),
		parent:    s,
	}
	s.streams[id] = ms
	return ms
}

// lookup finds the named stream. An empty name selects the only stream, if
// there is exactly one.
func (s *MJPEGServer) lookup(name string) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()
	if name == "" && len(s.streams) == 1 {
		for _, ms := range s.streams {
			return ms
		}
	}
	return s.streams[MJPEGID{Name: name}]
}

// ServeHTTP implements http.Handler interface, serving MJPEG.
func (s *MJPEGServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stream := s.lookup(r.URL.Query().Get("name"))
	if stream == nil {
		http.Error(w, "unknown stream name", http.StatusNotFound)
		return
	}

	clog := log.WithField("addr", r.RemoteAddr)
	clog.Infof("MJPEG stream connected to %v", stream.id)
	c := stream.subscribe()
	defer func() {
		stream.unsubscribe(c)
		clog.Infof("MJPEG stream disconnected from %v", stream.id)
	}()

	w.Header().Add("Content-Type", MJPEGContentType)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		// Clients wait for headers before the first frame arrives.
		flusher.Flush()
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case b := <-c:
			if _, err := w.Write(b); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// MJPEGStream is a Display publishing JPEG-encoded frames to every connected
// HTTP client. Clients that have not consumed the previous frame skip the
// current one.
type MJPEGStream struct {
	id        MJPEGID
	listeners map[chan []byte]struct{}
	started   time.Time

	parent *MJPEGServer
	lock   sync.Mutex
}

func (s *MJPEGStream) subscribe() chan []byte {
	c := make(chan []byte, 1)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.listeners[c] = struct{}{}
	return c
}

func (s *MJPEGStream) unsubscribe(c chan []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.listeners, c)
}

// Listeners returns the number of connected clients.
func (s *MJPEGStream) Listeners() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.listeners)
}

func (s *MJPEGStream) Put(input source.Frame) {
	if s.Listeners() == 0 {
		return
	}

	jpg, err := EncodeJPEG(input)
	if err != nil {
		log.Errorf("Error encoding to JPG for MJPEG stream %v: %v", s.id, err)
		return
	}

	// Each listener gets the same immutable slice.
	header := partHeader(len(jpg), time.Since(s.started))
	part := make([]byte, 0, len(header)+len(jpg))
	part = append(part, header...)
	part = append(part, jpg...)

	s.lock.Lock()
	defer s.lock.Unlock()
	for c := range s.listeners {
		select {
		case c <- part:
		default:
		}
	}
}

// Close unregisters the stream from its server.
func (s *MJPEGStream) Close() {
	s.parent.lock.Lock()
	defer s.parent.lock.Unlock()
	delete(s.parent.streams, s.id)
}
