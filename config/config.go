// Package config decodes the optional tutorial.toml shipped in a tutorial's
// assets.  Every setting has a default, so the file only needs the keys
// being changed.
package config

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration asset.
const FileName = "tutorial.toml"

// Config holds the window, shader, camera and logging settings of a
// tutorial.  Field names are the TOML keys.
type Config struct {
	Title string

	Width              int
	Height             int
	RefreshNumerator   int
	RefreshDenominator int
	SyncInterval       int
	ClearColor         [4]float32

	ShaderFile    string
	VertexEntry   string
	PixelEntry    string
	VertexProfile string
	PixelProfile  string

	Eye         [3]float32
	Target      [3]float32
	Up          [3]float32
	FieldOfView float32 // vertical, degrees
	Near        float32
	Far         float32

	LightDir      [4]float32
	RotationSpeed float32 // radians per second

	MaxFrameFailures int

	LogLevel string
	LogDir   string
}

// Default returns the settings the tutorials run with when no file is
// present.
func Default() Config {
	return Config{
		Title:              "Tutorial",
		Width:              800,
		Height:             600,
		RefreshNumerator:   60,
		RefreshDenominator: 1,
		SyncInterval:       0,
		ClearColor:         [4]float32{0, 0.125, 0.6, 1},
		ShaderFile:         "Shaders.glsl",
		VertexEntry:        "VS",
		PixelEntry:         "PS",
		VertexProfile:      "vs_3_0",
		PixelProfile:       "ps_3_0",
		Eye:                [3]float32{0, 0, -3},
		Target:             [3]float32{0, 0, 0},
		Up:                 [3]float32{0, 1, 0},
		FieldOfView:        90,
		Near:               0.01,
		Far:                100,
		LightDir:           [4]float32{-0.577, 0.577, -0.577, 0},
		RotationSpeed:      1,
		MaxFrameFailures:   3,
		LogLevel:           "info",
	}
}

// Read decodes TOML from r over def and validates the result.  The name is
// only used in errors.
func Read(r io.Reader, name string, def Config) (Config, error) {
	c := def
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return def, fmt.Errorf("config %s: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return def, fmt.Errorf("config %s: unknown keys %s", name, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return def, fmt.Errorf("config %s: %w", name, err)
	}
	return c, nil
}

// Validate checks that the settings can describe a pipeline.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("invalid size %dx%d", c.Width, c.Height)
	case c.RefreshDenominator <= 0 || c.RefreshNumerator < 0:
		return fmt.Errorf("invalid refresh rate %d/%d", c.RefreshNumerator, c.RefreshDenominator)
	case c.SyncInterval < 0 || c.SyncInterval > 4:
		return fmt.Errorf("sync interval %d not in [0,4]", c.SyncInterval)
	case c.ShaderFile == "":
		return fmt.Errorf("no shader file")
	case c.VertexEntry == "" || c.PixelEntry == "":
		return fmt.Errorf("missing shader entry point")
	case c.FieldOfView <= 0 || c.FieldOfView >= 180:
		return fmt.Errorf("field of view %g not in (0,180)", c.FieldOfView)
	case c.Near <= 0 || c.Far <= c.Near:
		return fmt.Errorf("invalid depth range near %g far %g", c.Near, c.Far)
	case c.Eye == c.Target:
		return fmt.Errorf("eye and target coincide")
	case c.MaxFrameFailures < 1:
		return fmt.Errorf("max frame failures %d < 1", c.MaxFrameFailures)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// Aspect returns the width to height ratio.
func (c Config) Aspect() float32 {
	return float32(c.Width) / float32(c.Height)
}

// String encodes c as TOML.
func (c Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err.Error()
	}
	return buf.String()
}
