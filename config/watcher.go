package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// fileConfig is the subset of Config that may come from a file. Geometry,
// rate and output path are deliberately absent.
type fileConfig struct {
	Device           *string `json:"device" toml:"device" yaml:"device"`
	ReadTimeoutMs    *int    `json:"read_timeout_ms" toml:"read_timeout_ms" yaml:"read_timeout_ms"`
	Format           *string `json:"format" toml:"format" yaml:"format"`
	StopHaltsCapture *bool   `json:"stop_halts_capture" toml:"stop_halts_capture" yaml:"stop_halts_capture"`
	Overlay          *bool   `json:"overlay" toml:"overlay" yaml:"overlay"`
	Window           *bool   `json:"window" toml:"window" yaml:"window"`
	Port             *int    `json:"port" toml:"port" yaml:"port"`
	LogLevel         *string `json:"log_level" toml:"log_level" yaml:"log_level"`
}

func decode(path string, r io.Reader, fc *fileConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.NewDecoder(r).Decode(fc)
	case ".toml":
		return toml.NewDecoder(r).Decode(fc)
	case ".yaml", ".yml":
		err := yaml.NewDecoder(r).Decode(fc)
		if err == io.EOF {
			// Empty document.
			return nil
		}
		return err
	}
	return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
}

func (fc *fileConfig) apply(c *Config) {
	if fc.Device != nil {
		c.Device = *fc.Device
	}
	if fc.ReadTimeoutMs != nil {
		c.ReadTimeout = time.Duration(*fc.ReadTimeoutMs) * time.Millisecond
	}
	if fc.Format != nil {
		c.Format = *fc.Format
	}
	if fc.StopHaltsCapture != nil {
		c.StopHaltsCapture = *fc.StopHaltsCapture
	}
	if fc.Overlay != nil {
		c.Overlay = *fc.Overlay
	}
	if fc.Window != nil {
		c.Window = *fc.Window
	}
	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
}

// FromFile applies the file at path on top of base.
func FromFile(path string, base Config) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, err
	}
	defer f.Close()

	var fc fileConfig
	if err := decode(path, f, &fc); err != nil {
		return base, fmt.Errorf("parse %v: %w", path, err)
	}
	c := base
	fc.apply(&c)
	if err := c.Validate(); err != nil {
		return base, fmt.Errorf("%v: %w", path, err)
	}
	log.Infof("Loaded configuration: %v", spew.Sdump(fc))
	return c, nil
}

func waitForChange(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-watcher.Errors:
		return err
	case <-watcher.Events:
	}
	// Let editors finish writing.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second / 10):
	}
	return ctx.Err()
}

// Load reads the config file at path over base and keeps watching it until
// ctx is done. onChange, if set, receives every successfully reloaded config.
func Load(ctx context.Context, path string, base Config, onChange func(Config)) (Config, error) {
	config, err := FromFile(path, base)
	if err != nil {
		return base, err
	}
	go func() {
		for ctx.Err() == nil {
			if err := waitForChange(ctx, path); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Errorf("Error waiting for file change: %v", err)
				// Avoid spinning while the file is missing.
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
				continue
			}

			config, err := FromFile(path, base)
			if err != nil {
				log.Errorf("Failed to load new config: %v", err)
				continue
			}
			if onChange != nil {
				onChange(config)
			}
		}
	}()
	return config, nil
}
