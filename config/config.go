package config

import (
	"fmt"
	"time"
)

// Recording geometry and rate are fixed at build time.
const (
	FrameWidth  = 430
	FrameHeight = 350
	FPS         = 30

	OutputPath   = "video.avi"
	OutputFormat = "avi"
)

// Config is passed to the recorder at construction. Only the operational
// fields can be set from a config file; see fileConfig.
type Config struct {
	Width, Height int
	FPS           int
	OutputPath    string
	Format        string

	// Device is a camera index, a video URI, or "synthetic".
	Device      string
	ReadTimeout time.Duration

	// StopHaltsCapture ties capture to the recording session. When false,
	// Stop only finalizes the file and the preview keeps running.
	StopHaltsCapture bool

	// Overlay labels the displayed (never the recorded) frame while recording.
	Overlay bool
	// Window shows the preview in a desktop window in addition to HTTP.
	Window bool

	Port     int
	LogLevel string
}

// DeviceSynthetic selects the built-in test pattern instead of a camera.
const DeviceSynthetic = "synthetic"

func DefaultConfig() Config {
	return Config{
		Width:       FrameWidth,
		Height:      FrameHeight,
		FPS:         FPS,
		OutputPath:  OutputPath,
		Format:      OutputFormat,
		Device:      "0",
		ReadTimeout: 2 * time.Second,
		Overlay:     true,
		Port:        8080,
		LogLevel:    "info",
	}
}

func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.FPS <= 0 {
		return fmt.Errorf("invalid geometry %dx%d@%d", c.Width, c.Height, c.FPS)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Format == "" {
		return fmt.Errorf("output format is required")
	}
	if c.Device == "" {
		return fmt.Errorf("device is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", c.ReadTimeout)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
