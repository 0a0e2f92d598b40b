// Package config manages application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/roboco-io/imgframe/internal/pack"
	"github.com/roboco-io/imgframe/internal/raster"
)

// Config represents the application configuration.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Render  RenderConfig  `yaml:"render"`
	Archive ArchiveConfig `yaml:"archive"`
	Watch   WatchConfig   `yaml:"watch"`
}

// OutputConfig controls where exported files go.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	ArchiveName string `yaml:"archive_name"`
}

// RenderConfig contains resampling options.
type RenderConfig struct {
	Scaler string `yaml:"scaler"`
}

// ArchiveConfig contains export archive options.
type ArchiveConfig struct {
	Compression string `yaml:"compression"` // store or deflate
}

// WatchConfig contains drop-folder options.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:         "./resized",
			ArchiveName: pack.DefaultArchiveName,
		},
		Render: RenderConfig{
			Scaler: raster.ScalerBilinear,
		},
		Archive: ArchiveConfig{
			Compression: string(pack.MethodStore),
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// DebounceDuration parses Watch.Debounce.
func (c *Config) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("watch.debounce must not be negative: %s", d)
	}
	return d, nil
}

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	if _, err := raster.ParseScaler(c.Render.Scaler); err != nil {
		return fmt.Errorf("render.scaler: %w", err)
	}
	if _, err := pack.ParseMethod(c.Archive.Compression); err != nil {
		return fmt.Errorf("archive.compression: %w", err)
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	if c.Output.ArchiveName == "" {
		return fmt.Errorf("output.archive_name must not be empty")
	}
	return nil
}

// Keys lists the settable keys in display order.
var Keys = []string{"output.dir", "output.archive_name", "render.scaler", "archive.compression", "watch.debounce"}

// Set assigns one dotted key and validates the result.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "output.dir":
		if value == "" {
			return fmt.Errorf("output.dir must not be empty")
		}
		next.Output.Dir = value
	case "output.archive_name":
		next.Output.ArchiveName = value
	case "render.scaler":
		next.Render.Scaler = value
	case "archive.compression":
		next.Archive.Compression = value
	case "watch.debounce":
		next.Watch.Debounce = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
