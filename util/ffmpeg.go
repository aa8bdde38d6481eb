package util

import (
	"fmt"
	"os"
	"os/exec"
)

// FFmpegEnv may point at the ffmpeg binary when it is not in $PATH.
const FFmpegEnv = "FFMPEG"

// LocateFFmpeg finds the ffmpeg binary, preferring $FFMPEG.
func LocateFFmpeg() (string, error) {
	if p := os.Getenv(FFmpegEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("$%s: %w", FFmpegEnv, err)
		}
		return p, nil
	}
	p, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", err
	}
	return p, nil
}
