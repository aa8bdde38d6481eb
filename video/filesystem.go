package video

import (
	"os"
	"path/filepath"
	"time"
)

// Output describes the recording file on disk.
type Output struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatOutput returns the current state of the output file.
func StatOutput(path string) (*Output, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, &os.PathError{Op: "stat", Path: path, Err: os.ErrInvalid}
	}
	return &Output{
		Path:    path,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}, nil
}

// prepareOutput makes sure the output file can be (re)created.
func prepareOutput(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return &os.PathError{Op: "create", Path: path, Err: os.ErrExist}
	}
	return nil
}
