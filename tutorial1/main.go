// Tutorial 01 draws a static yellow triangle on a blue background.
//
// It creates a device and swap chain, compiles the VS and PS entry points of
// Shaders.glsl, binds an input layout and a three-vertex buffer and then
// clears, draws and presents once per loop iteration.  Shaders.glsl and an
// optional tutorial.toml are read from the assets directory, so run it from
// here:
//
//	$ cd tutorial1 && go run .
//
// or build an APK with gomobile.
package main

import (
	"log/slog"
	"os"

	"github.com/bmatsuo/gles-pipeline-tutorial/config"
	"github.com/bmatsuo/gles-pipeline-tutorial/log"
	"github.com/bmatsuo/gles-pipeline-tutorial/mesh"
	"github.com/bmatsuo/gles-pipeline-tutorial/pipeline"
	"github.com/bmatsuo/gles-pipeline-tutorial/platform"
)

func main() {
	def := config.Default()
	def.Title = "Tutorial 01"
	def.VertexProfile = "vs_2_0"
	def.PixelProfile = "ps_2_0"

	cfg, err := platform.LoadConfig(def)
	lg := log.New("tutorial1", cfg.LogLevel, cfg.LogDir)
	if err != nil {
		lg.Warn("Using default settings", slog.Any("error", err))
	}
	lg.Debug("Settings", slog.String("config", cfg.String()))

	p := pipeline.New(cfg, pipeline.Options{
		Mesh: mesh.Triangle(),
		Open: platform.Open,
		Log:  lg,
	})
	os.Exit(platform.Run(cfg, lg, p))
}
