package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"videorecord/notify"
	"videorecord/video"
	"videorecord/video/sink"
	"videorecord/video/source"
)

type fakeControls struct {
	status   video.Status
	startErr error
	starts   int
	stops    int
}

func (c *fakeControls) Start() error {
	c.starts++
	if c.startErr != nil {
		return c.startErr
	}
	c.status.Recording = true
	return nil
}

func (c *fakeControls) Stop() {
	c.stops++
	c.status.Recording = false
}

func (c *fakeControls) Status() video.Status {
	return c.status
}

func newControlServer(c *fakeControls) *httptest.Server {
	mux := http.NewServeMux()
	(&ControlServer{Controls: c}).RegisterHandlers(mux)
	return httptest.NewServer(mux)
}

func decodeStatus(t *testing.T, r io.Reader) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		t.Fatalf("bad status body: %v", err)
	}
	return m
}

func TestControlStartStop(t *testing.T) {
	c := &fakeControls{status: video.Status{OutputPath: "video.avi"}}
	ts := newControlServer(c)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/start", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start returned %v", resp.Status)
	}
	if m := decodeStatus(t, resp.Body); m["Recording"] != true || m["Worker"] != "idle" {
		t.Fatalf("unexpected status after start: %v", m)
	}

	resp, err = http.Post(ts.URL+"/stop", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if m := decodeStatus(t, resp.Body); m["Recording"] != false {
		t.Fatalf("unexpected status after stop: %v", m)
	}
	if c.starts != 1 || c.stops != 1 {
		t.Fatalf("expected one start and one stop, got %d and %d", c.starts, c.stops)
	}
}

func TestControlRequiresPost(t *testing.T) {
	c := &fakeControls{}
	ts := newControlServer(c)
	defer ts.Close()

	for _, path := range []string{"/start", "/stop"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("GET %v returned %v", path, resp.Status)
		}
	}
	if c.starts != 0 || c.stops != 0 {
		t.Fatal("controls invoked by GET")
	}
}

func TestControlStartErrors(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: permission denied", sink.ErrFileCreate), http.StatusConflict},
		{video.ErrClosed, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	} {
		ts := newControlServer(&fakeControls{startErr: tc.err})
		resp, err := http.Post(ts.URL+"/start", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		ts.Close()
		if resp.StatusCode != tc.code {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.code, resp.StatusCode)
		}
	}
}

func TestVideoServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.avi")
	s := NewVideoServer(path, "avi")

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest("GET", "/video", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before recording, got %d", rr.Code)
	}

	if err := os.WriteFile(path, []byte("RIFFdata"), 0644); err != nil {
		t.Fatal(err)
	}
	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest("GET", "/video", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "RIFFdata" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "video/x-msvideo" {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "video.avi") {
		t.Errorf("unexpected content disposition %q", cd)
	}
}

func TestSnapshotServer(t *testing.T) {
	latest := &sink.Latest{}
	s := &SnapshotServer{Latest: latest}

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest("GET", "/snapshot", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any frame, got %d", rr.Code)
	}

	latest.Put(source.Pattern(32, 16, 0))
	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest("GET", "/snapshot", nil))
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if b := rr.Body.Bytes(); len(b) < 2 || b[0] != 0xff || b[1] != 0xd8 {
		t.Fatal("body is not a JPEG")
	}
}

type wsMessage struct {
	Type   string
	Status json.RawMessage
	Notice *notify.Notice
}

func TestStatusUpdater(t *testing.T) {
	u := NewStatusUpdater()
	u.StatusChanged(video.Status{Recording: true, SessionID: "abc"})

	ts := httptest.NewServer(u)
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var m wsMessage
	if err := ws.ReadJSON(&m); err != nil {
		t.Fatal(err)
	}
	if m.Type != "status" || !strings.Contains(string(m.Status), `"abc"`) {
		t.Fatalf("expected replayed status, got %+v", m)
	}

	u.Notify(&notify.Notice{Kind: notify.DeviceLost, Message: notify.MessageNoCamera})
	m = wsMessage{}
	if err := ws.ReadJSON(&m); err != nil {
		t.Fatal(err)
	}
	if m.Type != "notice" || m.Notice == nil || m.Notice.Kind != notify.DeviceLost {
		t.Fatalf("expected device lost notice, got %+v", m)
	}
}

func dialUpdates(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	return ws
}

func TestStatusUpdaterReplaysNoticeUntilAck(t *testing.T) {
	u := NewStatusUpdater()
	ts := httptest.NewServer(u)
	defer ts.Close()

	// Raised before any UI is connected.
	u.Notify(&notify.Notice{Kind: notify.DeviceNotFound, Message: notify.MessageNoCamera})

	ws := dialUpdates(t, ts)
	defer ws.Close()
	var m wsMessage
	if err := ws.ReadJSON(&m); err != nil {
		t.Fatal(err)
	}
	if m.Type != "notice" || m.Notice == nil || m.Notice.Kind != notify.DeviceNotFound {
		t.Fatalf("expected replayed notice, got %+v", m)
	}
	if err := ws.WriteJSON(Message{Type: "ack"}); err != nil {
		t.Fatal(err)
	}
	u.StatusChanged(video.Status{Recording: false})

	// Once the ack is processed new clients only get the status.
	deadline := time.Now().Add(5 * time.Second)
	for {
		c := dialUpdates(t, ts)
		m = wsMessage{}
		err := c.ReadJSON(&m)
		c.Close()
		if err != nil {
			t.Fatal(err)
		}
		if m.Type == "status" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("notice still replayed after ack")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
