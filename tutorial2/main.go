// Tutorial 02 draws a rotating cube lit by one directional light.
//
// On top of tutorial 1 it adds a depth buffer, an index buffer, a constant
// buffer holding the world, view and projection transforms and the light
// direction, and a rasterizer state.  The cube turns about +Y at
// RotationSpeed radians per second of wall clock time.
//
//	$ cd tutorial2 && go run .
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
	def.Title = "Tutorial 02"

	cfg, err := platform.LoadConfig(def)
	lg := log.New("tutorial2", cfg.LogLevel, cfg.LogDir)
	if err != nil {
		lg.Warn("Using default settings", slog.Any("error", err))
	}
	lg.Debug("Settings", slog.String("config", cfg.String()))

	p := pipeline.New(cfg, pipeline.Options{
		Mesh: mesh.Cube(),
		Lit:  true,
		Open: platform.Open,
		Log:  lg,
	})
	os.Exit(platform.Run(cfg, lg, p))
}
