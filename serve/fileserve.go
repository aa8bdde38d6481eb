package serve

import (
	"net/http"
	"os"
	"path/filepath"

	"videorecord/video"
	"videorecord/video/sink"
)

// FileServer serves the recording file.
type FileServer struct {
	Path        string
	ContentType string
}

func NewVideoServer(path, format string) *FileServer {
	ct := "video/x-msvideo"
	if format == sink.FormatMJPEG {
		ct = sink.MJPEGContentType
	}
	return &FileServer{
		Path:        path,
		ContentType: ct,
	}
}

func (s *FileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out, err := video.StatOutput(s.Path)
	if err != nil {
		http.Error(w, "No recording available", http.StatusNotFound)
		return
	}

	f, err := os.Open(out.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", s.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(out.Path)+"\"")
	http.ServeContent(w, r, out.Path, out.ModTime, f)
}

// SnapshotServer serves the frame currently on the display as a JPEG.
type SnapshotServer struct {
	Latest *sink.Latest
}

func (s *SnapshotServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, err := s.Latest.JPEG()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if b == nil {
		http.Error(w, "No frame displayed yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(b)
}
