// Package config handles annotator configuration loading and management.
package config

import (
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// Config holds all annotator settings.
type Config struct {
	Annotation AnnotationConfig `yaml:"annotation"`
	Inference  InferenceConfig  `yaml:"inference"`
	Watch      WatchConfig      `yaml:"watch"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AnnotationConfig holds editing and segmentation settings.
type AnnotationConfig struct {
	AutoSegment  bool    `yaml:"auto_segment"`  // Re-segment after every finished edit
	ShowSegments bool    `yaml:"show_segments"` // Color segments instead of the base color
	HistorySize  int     `yaml:"history_size"`  // Max undoable actions
	EdgeColor    string  `yaml:"edge_color"`    // Hex color of edge vertices
	BaseColor    string  `yaml:"base_color"`    // Hex color of unmarked surface
	BrushRadius  float32 `yaml:"brush_radius"`  // World units
	ColorSeed    uint64  `yaml:"color_seed"`    // 0 = seed from clock
}

// InferenceConfig holds remote edge-inference server settings.
type InferenceConfig struct {
	ServerURL     string        `yaml:"server_url"`
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	EdgeThreshold float64       `yaml:"edge_threshold"`
	NAngles       int           `yaml:"n_angles"`
	Zoom          float64       `yaml:"zoom"`
}

// WatchConfig holds file watching settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Annotation: AnnotationConfig{
			AutoSegment:  true,
			ShowSegments: true,
			HistorySize:  100,
			EdgeColor:    "#ff9933",
			BaseColor:    "#808080",
			BrushRadius:  0.05,
		},
		Inference: InferenceConfig{
			Timeout:       5 * time.Minute,
			EdgeThreshold: 0.5,
			NAngles:       6,
			Zoom:          1.0,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ParseColor converts a hex color ("#rrggbb") to a packed 0xRRGGBB value.
func ParseColor(hex string) (uint32, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, fmt.Errorf("parsing color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b), nil
}

// Validate checks settings that cannot be defaulted silently.
func (c *Config) Validate() error {
	if _, err := ParseColor(c.Annotation.EdgeColor); err != nil {
		return fmt.Errorf("annotation.edge_color: %w", err)
	}
	if _, err := ParseColor(c.Annotation.BaseColor); err != nil {
		return fmt.Errorf("annotation.base_color: %w", err)
	}
	if c.Annotation.EdgeColor == c.Annotation.BaseColor {
		return fmt.Errorf("annotation.edge_color and base_color must differ")
	}
	if c.Annotation.HistorySize < 0 {
		return fmt.Errorf("annotation.history_size must not be negative, got %d", c.Annotation.HistorySize)
	}
	if c.Inference.EdgeThreshold < 0 || c.Inference.EdgeThreshold > 1 {
		return fmt.Errorf("inference.edge_threshold must be in [0,1], got %v", c.Inference.EdgeThreshold)
	}
	return nil
}
