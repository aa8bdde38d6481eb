package sink

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	log "github.com/sirupsen/logrus"

	"videorecord/util"
	"videorecord/video/source"
)

// FormatFFmpeg pipes raw BGR frames to an ffmpeg child process producing a
// motion-JPEG AVI.
const FormatFFmpeg = "ffmpeg"

func init() {
	Register(FormatFFmpeg, NewFFmpegEncoder)
}

// lockedBuffer collects child stderr. exec copies into it from its own
// goroutine while the process runs.
type lockedBuffer struct {
	b bytes.Buffer
	l sync.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.l.Lock()
	defer b.l.Unlock()
	return b.b.Write(p)
}

func (b *lockedBuffer) String() string {
	b.l.Lock()
	defer b.l.Unlock()
	return b.b.String()
}

type FFmpegEncoder struct {
	cmd    *exec.Cmd
	pipe   io.WriteCloser
	stderr lockedBuffer

	width, height int
}

func NewFFmpegEncoder(path string, fps, width, height int) (Encoder, error) {
	bin, err := util.LocateFFmpeg()
	if err != nil {
		return nil, fmt.Errorf("unable to locate ffmpeg binary: %w", err)
	}

	// ffmpeg only reports a bad output path once running, so check it here.
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	f.Close()

	e := &FFmpegEncoder{width: width, height: height}
	e.cmd = exec.Command(
		bin,
		"-hide_banner",
		"-loglevel", "error",
		// Configure ffmpeg to read raw frames from the pipe.
		"-f", "rawvideo",
		"-pixel_format", "bgr24",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-", // Read from stdin.
		// Motion-JPEG in an AVI container, same as the OpenCV MJPG writer.
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-f", "avi",
		"-y", // Overwrite.
		path,
	)
	e.cmd.Stderr = &e.stderr

	e.pipe, err = e.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("error starting ffmpeg: %w", err)
	}
	log.Debugf("Started ffmpeg (pid %d) writing %v", e.cmd.Process.Pid, path)
	return e, nil
}

func (e *FFmpegEncoder) Encode(f source.Frame) error {
	if f.Channels != 3 || f.Depth != 8 {
		return fmt.Errorf("ffmpeg encoder takes 8-bit BGR frames, got %d channels at %d bits", f.Channels, f.Depth)
	}
	if _, err := e.pipe.Write(f.Data); err != nil {
		return fmt.Errorf("error writing to ffmpeg: %w: %s", err, e.stderr.String())
	}
	return nil
}

func (e *FFmpegEncoder) Close() error {
	e.pipe.Close()
	log.Debugf("Waiting for FFMPEG shutdown.")
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg exit with status %v: %s", err, e.stderr.String())
	}
	return nil
}
